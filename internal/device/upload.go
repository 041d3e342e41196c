package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/seltzinger/airsync/internal/utils"
)

const successBody = "SUCCESS"

// UploadError reports upload.cgi refusing an operation.
type UploadError struct {
	Op   string
	Body string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload.cgi %s failed: %q", e.Op, e.Body)
}

// UnsupportedError reports card firmware too old for host uploads.
type UnsupportedError struct {
	Firmware string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("firmware %q does not support host uploads (needs %s or newer)",
		e.Firmware, utils.UploadMinFirmware)
}

// SetWriteProtect toggles the host-side write lock. The card requires the
// lock before it will accept writes from a host.
func (c *Client) SetWriteProtect(ctx context.Context, on bool) error {
	mode := "OFF"
	if on {
		mode = "ON"
	}
	return c.uploadParam(ctx, "WRITEPROTECT", mode)
}

// SetUploadDir selects the directory the next POST writes into.
func (c *Client) SetUploadDir(ctx context.Context, dir string) error {
	return c.uploadParam(ctx, "UPDIR", dir)
}

// SetCreationTime sets the FAT timestamp the next POST records.
func (c *Client) SetCreationTime(ctx context.Context, t time.Time) error {
	return c.uploadParam(ctx, "FTIME", FormatFATTime(t))
}

// Delete removes a path from the card. Per the card's docs, deleting a
// directory does not recursively delete its contents.
func (c *Client) Delete(ctx context.Context, remotePath string) error {
	return c.uploadParam(ctx, "DEL", remotePath)
}

func (c *Client) uploadParam(ctx context.Context, key, value string) error {
	q := url.Values{}
	q.Set(key, value)
	body, err := c.getText(ctx, utils.UploadPath, q)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) != successBody {
		return &UploadError{Op: key, Body: strings.TrimSpace(body)}
	}
	return nil
}

// Upload streams r to the card as filename inside dir. The sequence the
// card requires is write-protect on, target directory, FAT creation time,
// then the multipart POST; write protect is released afterwards.
func (c *Client) Upload(ctx context.Context, dir, filename string, r io.Reader, modified time.Time) error {
	if err := c.ensureUploadFirmware(ctx); err != nil {
		return err
	}
	if err := c.SetWriteProtect(ctx, true); err != nil {
		return err
	}
	if err := c.SetUploadDir(ctx, dir); err != nil {
		return err
	}
	if err := c.SetCreationTime(ctx, modified); err != nil {
		return err
	}
	if err := c.postFile(ctx, filename, r); err != nil {
		return err
	}
	return c.SetWriteProtect(ctx, false)
}

// postFile performs the multipart POST. The body cannot be replayed, so
// unlike the CGI GETs it is never retried.
func (c *Client) postFile(ctx context.Context, filename string, r io.Reader) error {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	u := c.baseURL + utils.UploadPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("device unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return nil
}

// SupportsUpload reports whether the card's firmware accepts host
// uploads.
func (c *Client) SupportsUpload(ctx context.Context) (bool, error) {
	err := c.ensureUploadFirmware(ctx)
	var unsupported *UnsupportedError
	if errors.As(err, &unsupported) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var fwVersionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// ensureUploadFirmware checks once per client that the firmware is new
// enough for upload.cgi. Firmware strings that carry no parsable version
// log a warning and pass.
func (c *Client) ensureUploadFirmware(ctx context.Context) error {
	c.mu.Lock()
	checked := c.uploadChecked
	c.mu.Unlock()
	if checked {
		return nil
	}

	fw, err := c.FirmwareVersion(ctx)
	if err != nil {
		return err
	}
	if match := fwVersionPattern.FindString(fw); match == "" {
		log.WithField("firmware", fw).Warn("cannot parse firmware version, assuming upload support")
	} else if have, err := version.NewVersion(match); err == nil {
		min := version.Must(version.NewVersion(utils.UploadMinFirmware))
		if have.LessThan(min) {
			return &UnsupportedError{Firmware: fw}
		}
	}

	c.mu.Lock()
	c.uploadChecked = true
	c.mu.Unlock()
	return nil
}
