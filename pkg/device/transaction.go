package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/newtron-network/confpush/pkg/job"
)

// Transaction is an exclusive lock on the device's candidate configuration.
// Changes loaded into it stay pending until Commit or Rollback. Close must be
// called on every path; it rolls back anything still pending to the baseline
// revision before releasing the lock.
type Transaction struct {
	s        *Session
	baseline int
	pending  bool
	closed   bool
}

// Begin locks the candidate configuration. Rollback revision 0 (the active
// configuration) is the baseline restored by Close.
func (s *Session) Begin(ctx context.Context) (*Transaction, error) {
	if _, err := s.exec(ctx, "lock-configuration", rpcLockConfiguration); err != nil {
		return nil, fmt.Errorf("locking configuration: %w", err)
	}
	s.log.Debug("Configuration locked")
	return &Transaction{s: s}, nil
}

// Pending reports whether loaded changes are awaiting commit or rollback.
func (t *Transaction) Pending() bool {
	return t.pending
}

// Load merges text into the candidate configuration.
func (t *Transaction) Load(ctx context.Context, text string, format job.Format) error {
	if t.closed {
		return errTransactionClosed
	}
	body, err := loadConfigurationRPC(text, format)
	if err != nil {
		return err
	}
	// A failed load can leave a partial merge behind.
	t.pending = true
	if _, err := t.s.exec(ctx, "load-configuration", body); err != nil {
		return err
	}
	return nil
}

// Diff returns the candidate's differences from the active configuration
// in Junos "show | compare" form. Empty means no differences.
func (t *Transaction) Diff(ctx context.Context) (string, error) {
	if t.closed {
		return "", errTransactionClosed
	}
	data, err := t.s.exec(ctx, "get-configuration", diffRPC(0))
	if err != nil {
		return "", err
	}
	return parseDiff(data)
}

// Commit makes the candidate active. comment, when set, is recorded in the
// commit log.
func (t *Transaction) Commit(ctx context.Context, comment string) error {
	if t.closed {
		return errTransactionClosed
	}
	if _, err := t.s.exec(ctx, "commit-configuration", commitRPC(comment)); err != nil {
		return err
	}
	t.pending = false
	t.s.log.Info("Committed")
	return nil
}

// Rollback replaces the candidate with rollback revision rev.
func (t *Transaction) Rollback(ctx context.Context, rev int) error {
	if t.closed {
		return errTransactionClosed
	}
	if _, err := t.s.exec(ctx, "load-configuration", rollbackRPC(rev)); err != nil {
		return err
	}
	t.pending = false
	t.s.log.WithField("rollback", rev).Info("Rolled back")
	return nil
}

// Close rolls back pending changes and releases the lock. Calling Close on a
// closed transaction is a no-op.
func (t *Transaction) Close(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true

	var rollbackErr error
	if t.pending {
		if _, err := t.s.exec(ctx, "load-configuration", rollbackRPC(t.baseline)); err != nil {
			rollbackErr = fmt.Errorf("rolling back pending changes: %w", err)
		} else {
			t.pending = false
		}
	}

	var unlockErr error
	if _, err := t.s.exec(ctx, "unlock-configuration", rpcUnlockConfiguration); err != nil {
		unlockErr = fmt.Errorf("unlocking configuration: %w", err)
	} else {
		t.s.log.Debug("Configuration unlocked")
	}
	return errors.Join(rollbackErr, unlockErr)
}

var errTransactionClosed = errors.New("transaction closed")
