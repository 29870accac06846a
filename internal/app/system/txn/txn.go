// internal/app/system/txn/txn.go

// Package txn runs a function inside a MongoDB multi-document transaction,
// falling back to plain execution when the server does not support
// transactions (standalone mongod without a replica set). Every mutation in
// this codebase that touches more than one document goes through Run, so a
// crash mid-operation can never leave a half-applied group aggregate on a
// transaction-capable deployment.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client. The ctx passed to fn
// is the session context; all collection operations inside fn must use it
// for the writes to commit or roll back together.
//
// If the server rejects transactions entirely (IsNotSupported), fn is run
// once more without a transaction and a warning is logged. That preserves
// local-dev ergonomics on a standalone mongod while production replica sets
// get real atomicity.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	client := db.Client()

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			logFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		logFallback(log, err)
		return fn(ctx)
	}
	return err
}

func logFallback(log *zap.Logger, err error) {
	if log == nil {
		return
	}
	log.Warn("mongodb transactions not supported; running without transaction",
		zap.Error(err))
}

// IsNotSupported reports whether err means the MongoDB deployment cannot
// run transactions at all (as opposed to a transient transaction failure).
//
// Server error codes:
//   - 20  IllegalOperation (transaction numbers require a replica set)
//   - 51  (illegal operation variants)
//   - 263 OperationNotSupportedInTransaction
//
// Driver-side errors do not always surface a code, so a keyword heuristic
// on the message covers the known phrasings.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "illegal operation") {
		return true
	}
	hasTxn := strings.Contains(msg, "transaction")
	hasSession := strings.Contains(msg, "session")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case hasTxn && hasSession:
		return true
	case hasSession && strings.Contains(msg, "not supported"):
		return true
	}
	return false
}

// Runner binds Run to a database and logger so callers that take a
// transaction runner do not need to know about Mongo at all.
type Runner struct {
	db  *mongo.Database
	log *zap.Logger
}

// NewRunner returns a Runner over db.
func NewRunner(db *mongo.Database, log *zap.Logger) *Runner {
	return &Runner{db: db, log: log}
}

// Run executes fn inside a transaction, with the same fallback behavior as
// the package-level Run.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.db, r.log, fn)
}
