package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"

	"github.com/seltzinger/airsync/internal/device"
	"github.com/seltzinger/airsync/internal/sync"
	"github.com/seltzinger/airsync/internal/types"
	"github.com/seltzinger/airsync/internal/utils"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{
			name:      "interrupted transfer",
			err:       &sync.InterruptedError{Path: "photos/IMG_0001.JPG", Err: io.ErrUnexpectedEOF},
			code:      utils.ErrCodeTransferInterrupted,
			retryable: true,
		},
		{
			name: "unsupported upload",
			err:  &device.UnsupportedError{Firmware: "1.00.03"},
			code: utils.ErrCodeUploadUnsupported,
		},
		{
			name: "upload rejected",
			err:  &device.UploadError{Op: "WRITEPROTECT", Body: "ERROR"},
			code: utils.ErrCodeUploadRejected,
		},
		{
			name: "bad param",
			err:  &device.ParamError{Param: device.ParamWifiSSID, Value: "", Reason: "must be 1 to 32 characters"},
			code: utils.ErrCodeInvalidParam,
		},
		{
			name: "device status",
			err:  &device.StatusError{URL: "http://flashair/command.cgi", StatusCode: 404},
			code: utils.ErrCodeDeviceStatus,
		},
		{
			name:      "server errors retryable",
			err:       &device.StatusError{URL: "http://flashair/command.cgi", StatusCode: 500},
			code:      utils.ErrCodeDeviceStatus,
			retryable: true,
		},
		{
			name:      "timeout",
			err:       context.DeadlineExceeded,
			code:      utils.ErrCodeTimeout,
			retryable: true,
		},
		{
			name: "cancelled",
			err:  context.Canceled,
			code: utils.ErrCodeCancelled,
		},
		{
			name:      "unreachable",
			err:       &url.Error{Op: "Get", URL: "http://flashair/command.cgi", Err: errors.New("no route to host")},
			code:      utils.ErrCodeDeviceUnreachable,
			retryable: true,
		},
		{
			name:      "wrapped status",
			err:       fmt.Errorf("listing card files: %w", &device.StatusError{StatusCode: 503}),
			code:      utils.ErrCodeDeviceStatus,
			retryable: true,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			code: utils.ErrCodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, got.Code)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Expected retryable %v, got %v", tt.retryable, got.Retryable)
			}
			if got.Message == "" {
				t.Error("Expected a message")
			}
		})
	}
}

func TestClassifyCarriesStatusDetail(t *testing.T) {
	got := classify(&device.StatusError{URL: "http://flashair/thumbnail.cgi", StatusCode: 404})
	if got.HTTPStatus != 404 {
		t.Errorf("Expected HTTP status 404, got %d", got.HTTPStatus)
	}
}

func TestClassifyCarriesInterruptedPath(t *testing.T) {
	got := classify(&sync.InterruptedError{Path: "photos/IMG_0004.JPG", Err: io.ErrUnexpectedEOF})
	if got.Context["path"] != "photos/IMG_0004.JPG" {
		t.Errorf("Expected path in context, got %v", got.Context)
	}
}

func TestValidateGlobalFlags(t *testing.T) {
	t.Cleanup(func() { globalFlags = types.GlobalFlags{} })

	globalFlags = types.GlobalFlags{OutputFormat: types.OutputFormatTable}
	if err := validateGlobalFlags(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	globalFlags = types.GlobalFlags{OutputFormat: types.OutputFormatTable, JSON: true}
	if err := validateGlobalFlags(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if globalFlags.OutputFormat != types.OutputFormatJSON {
		t.Errorf("Expected --json to force json output, got %s", globalFlags.OutputFormat)
	}

	globalFlags = types.GlobalFlags{OutputFormat: "yaml"}
	if err := validateGlobalFlags(); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestExitErrorCode(t *testing.T) {
	err := &exitError{code: utils.ExitTransfer}
	var ee *exitError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &ee) {
		t.Fatal("expected exitError to survive wrapping")
	}
	if ee.code != utils.ExitTransfer {
		t.Errorf("Expected code %d, got %d", utils.ExitTransfer, ee.code)
	}
}
