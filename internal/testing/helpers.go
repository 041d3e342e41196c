package testing

import (
	"context"
	"fmt"
	"path"
	"testing"
	"time"

	"github.com/seltzinger/airsync/internal/types"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// LocalFile creates a local file record for testing
func LocalFile(dir, name string, size int64, modified time.Time) types.FileInfo {
	return types.FileInfo{
		Directory: dir,
		Filename:  name,
		Path:      path.Join(dir, name),
		Size:      size,
		Modified:  modified,
	}
}

// RemoteFile creates a remote file record for testing
func RemoteFile(dir, name string, size int64) types.FileInfo {
	return types.FileInfo{
		Directory: dir,
		Filename:  name,
		Path:      path.Join(dir, name),
		Size:      size,
	}
}

// ListingRow renders one row of a command.cgi op=100 response
func ListingRow(dir, name string, size int64, attr, date, tm uint16) string {
	return fmt.Sprintf("%s,%s,%d,%d,%d,%d", dir, name, size, attr, date, tm)
}

// AssertNoError is a helper to fail the test if error is not nil
func AssertNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

// AssertError is a helper to fail the test if error is nil
func AssertError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected error but got nil", msgAndArgs[0])
		} else {
			t.Fatal("expected error but got nil")
		}
	}
}

// AssertEqual is a helper to fail the test if two values are not equal
func AssertEqual(t *testing.T, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got %v, want %v", msgAndArgs[0], got, want)
		} else {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// AssertNotNil is a helper to fail the test if value is nil
func AssertNotNil(t *testing.T, value interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if value == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected non-nil value", msgAndArgs[0])
		} else {
			t.Fatal("expected non-nil value")
		}
	}
}

// AssertNil is a helper to fail the test if value is not nil
func AssertNil(t *testing.T, value interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if value != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected nil value but got %v", msgAndArgs[0], value)
		} else {
			t.Fatalf("expected nil value but got %v", value)
		}
	}
}
