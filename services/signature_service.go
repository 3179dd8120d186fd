package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"signature-form-api/config"
	"signature-form-api/models"
)

const (
	signatureFilePrefix = "signature_"
	svgMimeType         = "image/svg+xml"
	filenameTimeLayout  = "20060102150405"
)

var (
	dataURLPattern = regexp.MustCompile(`^data:(image/[A-Za-z0-9.+-]+);base64,(.+)$`)
	tokenCleaner   = regexp.MustCompile(`[^A-Za-z0-9-]`)
)

// rasterMimeTypes are the data-URL types image.Decode can read here.
var rasterMimeTypes = map[string]bool{
	"image/png":  true,
	"image/webp": true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
}

// SignatureService turns data-URL signatures into files in the upload directory.
type SignatureService struct {
	files  *FileStore
	upload config.UploadConfig
	logs   *config.EventLogs
	now    func() time.Time
}

func NewSignatureService(files *FileStore, upload config.UploadConfig, logs *config.EventLogs) *SignatureService {
	return &SignatureService{files: files, upload: upload, logs: logs, now: time.Now}
}

// NewTempToken returns the placeholder identity used to name files before
// the submission row exists. The "tmp" prefix keeps it distinct from ids.
func NewTempToken() string {
	return "tmp" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// IsTempToken reports whether token came from NewTempToken.
func IsTempToken(token string) bool {
	return strings.HasPrefix(token, "tmp")
}

// Files exposes the underlying file store.
func (s *SignatureService) Files() *FileStore {
	return s.files
}

// ResolveFormats picks the formats to write for one submission: the default
// format, every allowed format when multi-format saving is on, or a single
// allowed format named by override.
func (s *SignatureService) ResolveFormats(override string) []models.SignatureFormat {
	if format, ok := models.ParseSignatureFormat(override); ok && s.upload.IsAllowed(format) {
		return []models.SignatureFormat{format}
	}
	if s.upload.SaveMultipleFormats {
		return append([]models.SignatureFormat(nil), models.AllSignatureFormats...)
	}
	return []models.SignatureFormat{s.upload.DefaultFormat}
}

// Save decodes dataURL and writes it in each requested format. It returns
// the written filenames keyed by format. On error no file from this call
// remains on disk.
func (s *SignatureService) Save(dataURL, token string, formats []models.SignatureFormat) (map[models.SignatureFormat]string, error) {
	saved, err := s.save(dataURL, token, formats)
	if err != nil {
		s.logs.Error("Signature file processing failed", map[string]any{
			"error":   err.Error(),
			"user_id": token,
			"formats": formats,
		})
		return nil, err
	}
	return saved, nil
}

func (s *SignatureService) save(dataURL, token string, formats []models.SignatureFormat) (map[models.SignatureFormat]string, error) {
	mime, body, err := parseDataURL(dataURL)
	if err != nil {
		return nil, decodeError("process signature", err)
	}

	if mime == svgMimeType {
		return s.saveSVG(body, token)
	}
	if !rasterMimeTypes[mime] {
		return nil, decodeError("process signature", fmt.Errorf("%w: %s", ErrUnsupportedMime, mime))
	}

	data, err := s.decodeBody(body)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError("process signature", fmt.Errorf("%w: %v", ErrCorruptImage, err))
	}
	canvas := toCanvas(img)

	saved := make(map[models.SignatureFormat]string, len(formats))
	var lastWriteErr error
	for _, format := range formats {
		if !s.upload.IsAllowed(format) {
			continue
		}
		if _, done := saved[format]; done {
			continue
		}
		encode, ok := signatureEncoders[format]
		if !ok {
			continue
		}

		name := s.tempFilename(token, format)
		if err := s.files.Write(name, func(w io.Writer) error { return encode(w, canvas) }); err != nil {
			lastWriteErr = err
			s.logs.Error("Signature format write failed", map[string]any{
				"error":  err.Error(),
				"format": format,
				"file":   name,
			})
			continue
		}
		saved[format] = name
	}

	if len(saved) == 0 {
		if lastWriteErr != nil {
			return nil, storageError("process signature", ErrNoFormatsSaved.Error(), fmt.Errorf("%w: %v", ErrNoFormatsSaved, lastWriteErr))
		}
		return nil, decodeError("process signature", ErrNoFormatsSaved)
	}
	return saved, nil
}

func (s *SignatureService) saveSVG(body, token string) (map[models.SignatureFormat]string, error) {
	data, err := s.decodeBody(body)
	if err != nil {
		return nil, err
	}
	if !bytes.Contains(data, []byte("<svg")) || !bytes.Contains(data, []byte("</svg>")) {
		return nil, decodeError("process svg signature", ErrInvalidSVG)
	}

	name := s.tempFilename(token, models.FormatSVG)
	err = s.files.Write(name, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	})
	if err != nil {
		return nil, storageError("process svg signature", "Failed to save SVG file", err)
	}
	return map[models.SignatureFormat]string{models.FormatSVG: name}, nil
}

// decodeBody base64-decodes body, refusing anything over MaxFileSize.
// Bodies that are certainly too large are refused before decoding.
func (s *SignatureService) decodeBody(body string) ([]byte, error) {
	limit := s.upload.MaxFileSize
	if int64(base64.StdEncoding.DecodedLen(len(body)))-2 > limit {
		return nil, decodeError("decode signature", ErrPayloadTooLarge)
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, decodeError("decode signature", fmt.Errorf("%w: %v", ErrCorruptImage, err))
	}
	if int64(len(data)) > limit {
		return nil, decodeError("decode signature", ErrPayloadTooLarge)
	}
	return data, nil
}

// RenameResult is the outcome of moving temp-named files to their final names.
type RenameResult struct {
	Renamed map[models.SignatureFormat]string
	Failed  map[models.SignatureFormat]error
}

// Rename moves every file in files to signature_<id>_<timestamp>.<ext>.
// Files that fail to move keep their temp names and are reported in Failed.
func (s *SignatureService) Rename(id uint, files map[models.SignatureFormat]string) RenameResult {
	result := RenameResult{
		Renamed: make(map[models.SignatureFormat]string, len(files)),
		Failed:  make(map[models.SignatureFormat]error),
	}
	stamp := s.now().Format(filenameTimeLayout)
	for _, format := range models.AllSignatureFormats {
		oldName, ok := files[format]
		if !ok {
			continue
		}
		newName := fmt.Sprintf("%s%d_%s.%s", signatureFilePrefix, id, stamp, format.Extension())
		if err := s.files.Rename(oldName, newName); err != nil {
			result.Failed[format] = err
			continue
		}
		result.Renamed[format] = newName
	}
	return result
}

// Restore moves renamed files back to their previous names. It is the undo
// step when the database could not be told about a rename.
func (s *SignatureService) Restore(previous, renamed map[models.SignatureFormat]string) error {
	var errs []error
	for format, current := range renamed {
		old, ok := previous[format]
		if !ok {
			continue
		}
		if err := s.files.Rename(current, old); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes every file in files. Missing files are ignored.
func (s *SignatureService) Remove(files map[models.SignatureFormat]string) (int, error) {
	removed := 0
	var errs []error
	for _, name := range files {
		if !s.files.Exists(name) {
			continue
		}
		if err := s.files.Delete(name); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *SignatureService) tempFilename(token string, format models.SignatureFormat) string {
	return fmt.Sprintf("%s%s_%s_%s.%s",
		signatureFilePrefix,
		cleanToken(token),
		s.now().Format(filenameTimeLayout),
		uuid.NewString()[:8],
		format.Extension(),
	)
}

func cleanToken(token string) string {
	cleaned := tokenCleaner.ReplaceAllString(token, "")
	if cleaned == "" {
		return "anon"
	}
	if len(cleaned) > 40 {
		cleaned = cleaned[:40]
	}
	return cleaned
}

func parseDataURL(dataURL string) (mime, body string, err error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(dataURL))
	if m == nil {
		return "", "", ErrMalformedDataURL
	}
	return strings.ToLower(m[1]), m[2], nil
}
