package encoder

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"wallcraft/internal/wallpaper"
)

var ErrInvalidDataURI = errors.New("invalid data uri")

const octetStream = "application/octet-stream"

// Encode reads the whole upload and turns it into a SourceImage. No size or
// type checks happen here; the edit service decides what it accepts.
func Encode(r io.Reader, declaredType string) (*wallpaper.SourceImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return EncodeBytes(data, declaredType), nil
}

func EncodeBytes(data []byte, declaredType string) *wallpaper.SourceImage {
	mediaType := normalizeMediaType(declaredType)
	if mediaType == "" || mediaType == octetStream {
		mediaType = normalizeMediaType(http.DetectContentType(data))
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return &wallpaper.SourceImage{
		EncodedBytes: encoded,
		MediaType:    mediaType,
		PreviewURI:   DataURI(mediaType, encoded),
		Size:         len(data),
	}
}

// EncodeFileHeader encodes a multipart upload, trusting the part's
// Content-Type the way a browser trusts File.type.
func EncodeFileHeader(fh *multipart.FileHeader) (*wallpaper.SourceImage, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	img, err := Encode(f, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	img.Name = fh.Filename
	return img, nil
}

func DataURI(mediaType, encoded string) string {
	return "data:" + mediaType + ";base64," + encoded
}

// DecodeDataURI is the inverse of DataURI. Only base64 payloads are supported.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return mediaType, data, nil
}

func normalizeMediaType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v)
	}
	return mt
}
