package device

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	testhelpers "github.com/seltzinger/airsync/internal/testing"
)

// uploadServer fakes the card's upload endpoints and records the order
// of operations it receives.
type uploadServer struct {
	*httptest.Server

	mu       sync.Mutex
	ops      []string
	filename string
	content  string
	firmware string
	failOp   string
	fwHits   int
}

func newUploadServer(t *testing.T) *uploadServer {
	t.Helper()
	us := &uploadServer{firmware: "FA9CAW3AW2.00.03"}
	us.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		us.mu.Lock()
		defer us.mu.Unlock()
		switch {
		case r.URL.Path == "/command.cgi":
			if r.URL.Query().Get("op") != "108" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			us.fwHits++
			w.Write([]byte(us.firmware))
		case r.URL.Path == "/upload.cgi" && r.Method == http.MethodPost:
			us.ops = append(us.ops, "POST")
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("Expected multipart file field, got error: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			us.filename = header.Filename
			us.content = string(data)
			w.Write([]byte("SUCCESS"))
		case r.URL.Path == "/upload.cgi":
			for _, key := range []string{"WRITEPROTECT", "UPDIR", "FTIME", "DEL"} {
				if v := r.URL.Query().Get(key); v != "" {
					us.ops = append(us.ops, fmt.Sprintf("%s=%s", key, v))
					if key == us.failOp {
						w.Write([]byte("ERROR"))
						return
					}
				}
			}
			w.Write([]byte("SUCCESS"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return us
}

func (us *uploadServer) recorded() []string {
	us.mu.Lock()
	defer us.mu.Unlock()
	return append([]string(nil), us.ops...)
}

func TestUpload(t *testing.T) {
	srv := newUploadServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	modified := time.Date(2017, 5, 20, 14, 35, 8, 0, time.Local)
	err := client.Upload(testhelpers.TestContext(), "/DCIM/100__TSB", "IMG_0001.JPG",
		strings.NewReader("jpeg bytes"), modified)
	testhelpers.AssertNoError(t, err)

	want := []string{
		"WRITEPROTECT=ON",
		"UPDIR=/DCIM/100__TSB",
		"FTIME=0x4ab47464",
		"POST",
		"WRITEPROTECT=OFF",
	}
	got := srv.recorded()
	if len(got) != len(want) {
		t.Fatalf("Expected operations %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected operation %d to be '%s', got '%s'", i, want[i], got[i])
		}
	}
	if srv.filename != "IMG_0001.JPG" {
		t.Errorf("Expected uploaded filename 'IMG_0001.JPG', got '%s'", srv.filename)
	}
	if srv.content != "jpeg bytes" {
		t.Errorf("Expected uploaded content 'jpeg bytes', got '%s'", srv.content)
	}
}

func TestUploadStopsOnRejectedParameter(t *testing.T) {
	srv := newUploadServer(t)
	srv.failOp = "UPDIR"
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err := client.Upload(testhelpers.TestContext(), "/DCIM/100__TSB", "IMG_0001.JPG",
		strings.NewReader("jpeg bytes"), time.Now())
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected UploadError, got %v", err)
	}
	if uploadErr.Op != "UPDIR" {
		t.Errorf("Expected failing op 'UPDIR', got '%s'", uploadErr.Op)
	}
	got := srv.recorded()
	for _, op := range got {
		if op == "POST" {
			t.Errorf("Expected no POST after a rejected parameter, got %v", got)
		}
	}
}

func TestUploadOldFirmware(t *testing.T) {
	srv := newUploadServer(t)
	srv.firmware = "F15DBW3BW1.00.04"
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err := client.Upload(testhelpers.TestContext(), "/DCIM/100__TSB", "IMG_0001.JPG",
		strings.NewReader("jpeg bytes"), time.Now())
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedError, got %v", err)
	}
	if len(srv.recorded()) != 0 {
		t.Errorf("Expected no upload.cgi traffic on old firmware, got %v", srv.recorded())
	}
}

func TestUploadUnparsableFirmwarePasses(t *testing.T) {
	srv := newUploadServer(t)
	srv.firmware = "CUSTOM-BUILD"
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err := client.Upload(testhelpers.TestContext(), "/DCIM/100__TSB", "IMG_0001.JPG",
		strings.NewReader("jpeg bytes"), time.Now())
	testhelpers.AssertNoError(t, err)
}

func TestSupportsUpload(t *testing.T) {
	tests := []struct {
		name     string
		firmware string
		want     bool
	}{
		{name: "new enough", firmware: "FA9CAW3AW2.00.03", want: true},
		{name: "exact minimum", firmware: "FA9CAW3AW2.00.02", want: true},
		{name: "too old", firmware: "F15DBW3BW1.00.04", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUploadServer(t)
			srv.firmware = tt.firmware
			defer srv.Close()

			client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
			got, err := client.SupportsUpload(testhelpers.TestContext())
			testhelpers.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("Expected %v for firmware '%s', got %v", tt.want, tt.firmware, got)
			}
		})
	}
}

func TestFirmwareCheckedOnce(t *testing.T) {
	srv := newUploadServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	ctx := testhelpers.TestContext()
	for i := 0; i < 3; i++ {
		err := client.Upload(ctx, "/DCIM/100__TSB", "IMG_0001.JPG",
			strings.NewReader("jpeg bytes"), time.Now())
		testhelpers.AssertNoError(t, err)
	}
	srv.mu.Lock()
	fwHits := srv.fwHits
	srv.mu.Unlock()
	if fwHits != 1 {
		t.Errorf("Expected a single firmware query, got %d", fwHits)
	}
}

func TestDelete(t *testing.T) {
	srv := newUploadServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err := client.Delete(testhelpers.TestContext(), "/DCIM/100__TSB/IMG_0001.JPG")
	testhelpers.AssertNoError(t, err)
	got := srv.recorded()
	if len(got) != 1 || got[0] != "DEL=/DCIM/100__TSB/IMG_0001.JPG" {
		t.Errorf("Expected a single DEL operation, got %v", got)
	}
}

func TestDeleteRejected(t *testing.T) {
	srv := newUploadServer(t)
	srv.failOp = "DEL"
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err := client.Delete(testhelpers.TestContext(), "/DCIM/100__TSB/IMG_0001.JPG")
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected UploadError, got %v", err)
	}
	if uploadErr.Body != "ERROR" {
		t.Errorf("Expected rejected body 'ERROR', got '%s'", uploadErr.Body)
	}
}
