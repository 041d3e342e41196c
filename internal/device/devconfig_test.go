package device

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	testhelpers "github.com/seltzinger/airsync/internal/testing"
	"github.com/seltzinger/airsync/internal/utils"
)

func TestParamValidation(t *testing.T) {
	tests := []struct {
		name      string
		param     Param
		value     string
		want      string
		wantError bool
	}{
		{name: "timeout seconds to millis", param: ParamWifiTimeout, value: "300", want: "300000"},
		{name: "timeout minimum", param: ParamWifiTimeout, value: "60", want: "60000"},
		{name: "timeout fractional", param: ParamWifiTimeout, value: "90.5", want: "90500"},
		{name: "timeout below minimum", param: ParamWifiTimeout, value: "59", wantError: true},
		{name: "timeout zero", param: ParamWifiTimeout, value: "0", wantError: true},
		{name: "timeout above maximum", param: ParamWifiTimeout, value: "4294968", wantError: true},
		{name: "timeout not a number", param: ParamWifiTimeout, value: "soon", wantError: true},

		{name: "app info", param: ParamAppInfo, value: "camera01", want: "camera01"},
		{name: "app info empty", param: ParamAppInfo, value: "", wantError: true},
		{name: "app info too long", param: ParamAppInfo, value: strings.Repeat("x", 17), wantError: true},

		{name: "wifi mode station", param: ParamWifiMode, value: "2", want: "2"},
		{name: "wifi mode access point", param: ParamWifiMode, value: "0", want: "0"},
		{name: "wifi mode on boot", param: ParamWifiMode, value: "5", want: "5"},
		{name: "wifi mode retired value", param: ParamWifiMode, value: "1", wantError: true},
		{name: "wifi mode out of range", param: ParamWifiMode, value: "7", wantError: true},

		{name: "network key", param: ParamWifiKey, value: "hunter2", want: "hunter2"},
		{name: "network key empty clears", param: ParamWifiKey, value: "", want: ""},
		{name: "network key max length", param: ParamWifiKey, value: strings.Repeat("k", 63), want: strings.Repeat("k", 63)},
		{name: "network key too long", param: ParamWifiKey, value: strings.Repeat("k", 64), wantError: true},

		{name: "ssid", param: ParamWifiSSID, value: "flashair_e8b4c8", want: "flashair_e8b4c8"},
		{name: "ssid empty", param: ParamWifiSSID, value: "", wantError: true},
		{name: "ssid max length", param: ParamWifiSSID, value: strings.Repeat("s", 32), want: strings.Repeat("s", 32)},
		{name: "ssid too long", param: ParamWifiSSID, value: strings.Repeat("s", 33), wantError: true},

		{name: "passthrough ssid", param: ParamPassthroughSSID, value: "homenet", want: "homenet"},
		{name: "passthrough key too long", param: ParamPassthroughKey, value: strings.Repeat("k", 64), wantError: true},

		{name: "mastercode upcased", param: ParamMastercode, value: "beefbeefbeef", want: "BEEFBEEFBEEF"},
		{name: "mastercode too short", param: ParamMastercode, value: "beef", wantError: true},
		{name: "mastercode not hex", param: ParamMastercode, value: "beefbeefbeeg", wantError: true},

		{name: "clearcode always 1", param: ParamClearMastercode, value: "whatever", want: "1"},

		{name: "timezone west", param: ParamTimezone, value: "-5", want: "-20"},
		{name: "timezone east limit", param: ParamTimezone, value: "9", want: "36"},
		{name: "timezone west limit", param: ParamTimezone, value: "-12", want: "-48"},
		{name: "timezone half hour", param: ParamTimezone, value: "5.5", want: "22"},
		{name: "timezone past east limit", param: ParamTimezone, value: "9.5", wantError: true},
		{name: "timezone past west limit", param: ParamTimezone, value: "-12.25", wantError: true},
		{name: "timezone not a number", param: ParamTimezone, value: "CET", wantError: true},

		{name: "drive off", param: ParamDriveMode, value: "0", want: "0"},
		{name: "drive read-write", param: ParamDriveMode, value: "2", want: "2"},
		{name: "drive out of range", param: ParamDriveMode, value: "3", wantError: true},

		{name: "bootscreen path passthrough", param: ParamBootscreenPath, value: "/DCIM/logo.bmp", want: "/DCIM/logo.bmp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings, err := NewSettings(map[Param]string{tt.param: tt.value})
			if tt.wantError {
				var paramErr *ParamError
				if !errors.As(err, &paramErr) {
					t.Fatalf("Expected ParamError, got %v", err)
				}
				if paramErr.Param != tt.param {
					t.Errorf("Expected error for %s, got %s", tt.param, paramErr.Param)
				}
				return
			}
			testhelpers.AssertNoError(t, err)
			if got := settings.Values().Get(string(tt.param)); got != tt.want {
				t.Errorf("Expected wire value '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestNewSettingsUnknownParam(t *testing.T) {
	_, err := NewSettings(map[Param]string{Param("BOGUS"): "1"})
	var paramErr *ParamError
	if !errors.As(err, &paramErr) {
		t.Fatalf("Expected ParamError, got %v", err)
	}
	if paramErr.Reason != "unknown parameter" {
		t.Errorf("Expected reason 'unknown parameter', got '%s'", paramErr.Reason)
	}
}

func TestSettingsValuesCopy(t *testing.T) {
	settings, err := NewSettings(map[Param]string{ParamAppInfo: "camera01"})
	testhelpers.AssertNoError(t, err)
	values := settings.Values()
	values.Set(string(ParamAppInfo), "mutated")
	if got := settings.Values().Get(string(ParamAppInfo)); got != "camera01" {
		t.Errorf("Expected settings to be unaffected by caller mutation, got '%s'", got)
	}
}

func TestApplyConfig(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config.cgi" {
			t.Errorf("Expected path /config.cgi, got %s", r.URL.Path)
		}
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte("SUCCESS"))
	}))
	defer srv.Close()

	settings, err := NewSettings(map[Param]string{
		ParamWifiTimeout: "300",
		ParamMastercode:  "deadbeef0000",
	})
	testhelpers.AssertNoError(t, err)

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err = client.ApplyConfig(testhelpers.TestContext(), settings)
	testhelpers.AssertNoError(t, err)

	if query["APPAUTOTIME"] != "300000" {
		t.Errorf("Expected APPAUTOTIME '300000', got '%s'", query["APPAUTOTIME"])
	}
	if query["MASTERCODE"] != "DEADBEEF0000" {
		t.Errorf("Expected MASTERCODE 'DEADBEEF0000', got '%s'", query["MASTERCODE"])
	}
}

func TestApplyConfigInjectsStoredMastercode(t *testing.T) {
	keyring.MockInit()

	var gotCode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCode = r.URL.Query().Get("MASTERCODE")
		w.Write([]byte("SUCCESS"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err := StoreMastercode(client.Host(), "c0ffeec0ffee")
	testhelpers.AssertNoError(t, err)

	settings, err := NewSettings(map[Param]string{ParamWifiTimeout: "300"})
	testhelpers.AssertNoError(t, err)
	err = client.ApplyConfig(testhelpers.TestContext(), settings)
	testhelpers.AssertNoError(t, err)

	if gotCode != "C0FFEEC0FFEE" {
		t.Errorf("Expected stored mastercode 'C0FFEEC0FFEE', got '%s'", gotCode)
	}
}

func TestApplyConfigRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ERROR"))
	}))
	defer srv.Close()

	settings, err := NewSettings(map[Param]string{ParamMastercode: "deadbeef0000"})
	testhelpers.AssertNoError(t, err)

	client := NewClient(srv.URL, WithRetry(0, time.Millisecond))
	err = client.ApplyConfig(testhelpers.TestContext(), settings)
	testhelpers.AssertError(t, err)
	if !strings.Contains(err.Error(), "rejected") {
		t.Errorf("Expected rejection error, got '%s'", err.Error())
	}
}

func TestStoreMastercodeInvalid(t *testing.T) {
	keyring.MockInit()
	err := StoreMastercode("flashair", "nope")
	var paramErr *ParamError
	if !errors.As(err, &paramErr) {
		t.Fatalf("Expected ParamError, got %v", err)
	}
}

func TestLoadMastercodeDefault(t *testing.T) {
	keyring.MockInit()
	if got := LoadMastercode("no-such-host"); got != utils.DefaultMastercode {
		t.Errorf("Expected factory mastercode '%s', got '%s'", utils.DefaultMastercode, got)
	}
}

func TestWifiModeString(t *testing.T) {
	if got := WifiStation.String(); got != "station" {
		t.Errorf("Expected 'station', got '%s'", got)
	}
	if got := WifiPassthroughOnBoot.String(); got != "passthrough (on boot)" {
		t.Errorf("Expected 'passthrough (on boot)', got '%s'", got)
	}
}
