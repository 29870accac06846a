// internal/app/system/txn/txn_test.go
package txn

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated error", errors.New("write conflict on memberships"), false},
		{"replica set required", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}, true},
		{"illegal operation", mongo.CommandError{Code: 51, Message: "Illegal operation"}, true},
		{"not supported in transaction", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"other command error", mongo.CommandError{Code: 11000, Message: "duplicate key"}, false},
		{"driver message replica set", errors.New("transaction failed because this is not a replica set member"), true},
		{"driver message sessions", errors.New("session operations are not supported on this server"), true},
		{"driver message mixed case", errors.New("Transaction Session error"), true},
		{"single keyword only", errors.New("transaction aborted"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Fatalf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
