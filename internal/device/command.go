package device

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/seltzinger/airsync/internal/utils"
)

// command.cgi operation codes.
const (
	opListFiles       = 100
	opCountFiles      = 101
	opMemoryChanged   = 102
	opSSID            = 104
	opNetworkPassword = 105
	opMACAddress      = 106
	opBrowserLanguage = 107
	opFirmwareVersion = 108
	opControlImage    = 109
	opWifiMode        = 110
)

// Attributes is the FAT attribute bitfield attached to a listing entry.
type Attributes uint16

func (a Attributes) ReadOnly() bool  { return a&0x01 != 0 }
func (a Attributes) Hidden() bool    { return a&0x02 != 0 }
func (a Attributes) System() bool    { return a&0x04 != 0 }
func (a Attributes) Volume() bool    { return a&0x08 != 0 }
func (a Attributes) Directory() bool { return a&0x10 != 0 }
func (a Attributes) Archive() bool   { return a&0x20 != 0 }

// RawEntry is one undecoded row of a device directory listing.
type RawEntry struct {
	Directory string
	Filename  string
	Path      string
	Size      int64
	Attr      Attributes
	Date      uint16
	Time      uint16
}

// Modified decodes the entry's FAT timestamp.
func (e RawEntry) Modified() time.Time {
	return DecodeFATTime(e.Date, e.Time)
}

// ListEntries lists the files in a remote directory.
func (c *Client) ListEntries(ctx context.Context, dir string) ([]RawEntry, error) {
	q := url.Values{}
	q.Set("op", strconv.Itoa(opListFiles))
	q.Set("DIR", dir)
	text, err := c.getText(ctx, utils.CommandPath, q)
	if err != nil {
		return nil, err
	}
	return parseEntryList(text)
}

// parseEntryList parses the op=100 response: rows are CRLF-separated,
// comma-split into directory, filename, size, attributes, date, time.
// Rows without exactly six fields (the WLANSD_FILELIST header among them)
// are skipped.
func parseEntryList(text string) ([]RawEntry, error) {
	var entries []RawEntry
	for _, line := range strings.Split(text, "\r\n") {
		fields := strings.Split(line, ",")
		if len(fields) != 6 {
			continue
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed listing row %q: %w", line, err)
		}
		attr, err := strconv.ParseUint(fields[3], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("malformed listing row %q: %w", line, err)
		}
		date, err := strconv.ParseUint(fields[4], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("malformed listing row %q: %w", line, err)
		}
		tm, err := strconv.ParseUint(fields[5], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("malformed listing row %q: %w", line, err)
		}
		dir, name := fields[0], fields[1]
		entries = append(entries, RawEntry{
			Directory: dir,
			Filename:  name,
			Path:      path.Join(dir, name),
			Size:      size,
			Attr:      Attributes(attr),
			Date:      uint16(date),
			Time:      uint16(tm),
		})
	}
	return entries, nil
}

// CountFiles returns the number of files in a remote directory.
func (c *Client) CountFiles(ctx context.Context, dir string) (int, error) {
	q := url.Values{}
	q.Set("op", strconv.Itoa(opCountFiles))
	q.Set("DIR", dir)
	text, err := c.getText(ctx, utils.CommandPath, q)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("file count query returned %q: %w", text, err)
	}
	return n, nil
}

// MemoryChanged reports whether the card's contents changed since the
// last call. Reading the flag clears it on the device.
func (c *Client) MemoryChanged(ctx context.Context) (bool, error) {
	text, err := c.opText(ctx, opMemoryChanged)
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return false, fmt.Errorf("memory changed query returned %q, likely no device connection", text)
	}
	return n == 1, nil
}

// SSID returns the card's wireless network name.
func (c *Client) SSID(ctx context.Context) (string, error) {
	return c.opText(ctx, opSSID)
}

// NetworkPassword returns the card's wireless network key.
func (c *Client) NetworkPassword(ctx context.Context) (string, error) {
	return c.opText(ctx, opNetworkPassword)
}

// MACAddress returns the card's MAC address.
func (c *Client) MACAddress(ctx context.Context) (string, error) {
	return c.opText(ctx, opMACAddress)
}

// BrowserLanguage returns the accepted language the card reports.
func (c *Client) BrowserLanguage(ctx context.Context) (string, error) {
	return c.opText(ctx, opBrowserLanguage)
}

// FirmwareVersion returns the card's firmware version string.
func (c *Client) FirmwareVersion(ctx context.Context) (string, error) {
	return c.opText(ctx, opFirmwareVersion)
}

// ControlImagePath returns the path of the card's control image.
func (c *Client) ControlImagePath(ctx context.Context) (string, error) {
	return c.opText(ctx, opControlImage)
}

// CurrentWifiMode returns the card's wireless operating mode.
func (c *Client) CurrentWifiMode(ctx context.Context) (WifiMode, error) {
	text, err := c.opText(ctx, opWifiMode)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("wifi mode query returned %q: %w", text, err)
	}
	mode := WifiMode(n)
	if !mode.valid() {
		return 0, fmt.Errorf("unknown wifi mode %d", n)
	}
	return mode, nil
}

// Thumbnail fetches the embedded EXIF thumbnail of a remote image.
func (c *Client) Thumbnail(ctx context.Context, remotePath string) ([]byte, error) {
	u := c.baseURL + utils.ThumbnailPath + "?" + (&url.URL{Path: remotePath}).EscapedPath()
	resp, err := c.do(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) opText(ctx context.Context, op int) (string, error) {
	q := url.Values{}
	q.Set("op", strconv.Itoa(op))
	text, err := c.getText(ctx, utils.CommandPath, q)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
