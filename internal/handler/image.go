package handler

import (
	"errors"
	"io"
	"net/http"
)

var (
	errImageTooLarge = errors.New("image exceeds size limit")
	errImageType     = errors.New("unsupported image type")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// readImage reads and validates an uploaded image field. The type check
// sniffs content rather than trusting the client's header.
func readImage(r *http.Request, field string, maxBytes int64) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, errImageTooLarge
	}
	if len(data) == 0 {
		return nil, errImageType
	}
	if !allowedImageTypes[http.DetectContentType(data)] {
		return nil, errImageType
	}
	return data, nil
}
