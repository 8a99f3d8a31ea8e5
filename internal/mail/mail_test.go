package mail

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_HTMLAndAttachments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20240310_u1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"date":"2024-03-10"}`), 0o644))

	att, err := FileAttachment(path)
	require.NoError(t, err)
	assert.Equal(t, "20240310_u1.json", att.Name)
	assert.Equal(t, "application/json", att.ContentType)

	raw, err := Compose(Message{
		From:        "bot@example.com",
		To:          "me@example.com",
		Subject:     "[BOT] Weekly Report - 10.03.2024",
		HTML:        "<h1>Weekly Results</h1>",
		Attachments: []Attachment{att},
		Date:        time.Date(2024, 3, 10, 23, 55, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer mr.Close()

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "[BOT] Weekly Report - 10.03.2024", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "me@example.com", to[0].Address)

	var htmlBody string
	var filenames []string
	var attached []byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			require.NoError(t, err)
			if strings.HasPrefix(ct, "text/html") {
				htmlBody = string(body)
			}
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			filenames = append(filenames, name)
			attached, err = io.ReadAll(part.Body)
			require.NoError(t, err)
		}
	}

	assert.Equal(t, "<h1>Weekly Results</h1>", htmlBody)
	assert.Equal(t, []string{"20240310_u1.json"}, filenames)
	assert.JSONEq(t, `{"date":"2024-03-10"}`, string(attached))
}

func TestCompose_RejectsBadAddress(t *testing.T) {
	_, err := Compose(Message{From: "not an address", To: "me@example.com"})
	assert.Error(t, err)
}

func TestFileAttachment_Missing(t *testing.T) {
	_, err := FileAttachment(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
