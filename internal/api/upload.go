package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// FileUpload is a file streamed as the multipart "file" field.
type FileUpload struct {
	Reader io.Reader
	// Progress, when set, is called with the running total of bytes sent.
	Progress    func(sent int64)
	Name        string
	ContentType string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// upload streams file to path without buffering it in memory.
func (c *Client) upload(ctx context.Context, op, path string, file FileUpload, out any) error {
	if file.Reader == nil || strings.TrimSpace(file.Name) == "" {
		return ErrNoFile
	}

	pr, pw := io.Pipe()
	// Closing the read side unblocks the writer if the request ends early.
	defer func() { _ = pr.Close() }()

	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	go func() {
		pw.CloseWithError(writeFilePart(mw, file))
	}()

	return c.do(ctx, request{
		op:            op,
		method:        http.MethodPost,
		path:          path,
		body:          pr,
		contentType:   contentType,
		authenticated: true,
	}, out)
}

func writeFilePart(mw *multipart.Writer, file FileUpload) error {
	partType := file.ContentType
	if partType == "" {
		partType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", partType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form part: %w", err)
	}

	var src io.Reader = file.Reader
	if file.Progress != nil {
		src = &progressReader{r: file.Reader, fn: file.Progress}
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to stream file: %w", err)
	}
	return mw.Close()
}

type progressReader struct {
	r    io.Reader
	fn   func(int64)
	sent int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent)
	}
	return n, err
}
