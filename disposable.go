package refdi

import "context"

// Disposable is implemented by instances that hold resources. An injector
// closes the instances it constructed when it is closed.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext allows disposal with context for graceful shutdown.
//
// Example:
//
//	func (dc *DatabaseConnection) Close(ctx context.Context) error {
//	    done := make(chan error, 1)
//	    go func() {
//	        done <- dc.conn.Close()
//	    }()
//
//	    select {
//	    case err := <-done:
//	        return err
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    }
//	}
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

type disposableAdapter struct {
	d Disposable
}

func (a disposableAdapter) Close(context.Context) error {
	return a.d.Close()
}

// asDisposable reports whether v needs closing.
func asDisposable(v any) (DisposableWithContext, bool) {
	switch d := v.(type) {
	case DisposableWithContext:
		return d, true
	case Disposable:
		return disposableAdapter{d: d}, true
	default:
		return nil, false
	}
}
