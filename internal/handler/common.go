package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warranty-manager/internal/middleware"
	"github.com/iliyamo/warranty-manager/internal/service"
	"github.com/iliyamo/warranty-manager/internal/storage"
)

// ErrorHandler renders every error returned by a handler as
// {"error": "..."}; validation errors add a "fields" object. Unknown errors
// become a 500 whose details only reach the log.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorBody(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", middleware.RequestIDOf(c),
				"err", err,
			)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.WarnContext(c.Request().Context(), "write error response", "err", err)
		}
	}
}

func errorBody(err error) (int, echo.Map) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve.Errors))
		for _, fe := range ve.Errors {
			if _, dup := fields[fe.Field]; !dup {
				fields[fe.Field] = fe.Message
			}
		}
		return http.StatusBadRequest, echo.Map{"error": ve.Error(), "fields": fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		if he.Code >= http.StatusInternalServerError {
			msg = "server error"
		}
		return he.Code, echo.Map{"error": msg}
	}

	for _, m := range []struct {
		target error
		status int
	}{
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrAlreadyExists, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
	} {
		if errors.Is(err, m.target) {
			return m.status, echo.Map{"error": publicMessage(err, m.target)}
		}
	}
	return http.StatusInternalServerError, echo.Map{"error": "server error"}
}

// publicMessage drops the ": <sentinel>" suffix added by %w wrapping, so
// "invalid credentials: unauthorized" reads "invalid credentials".
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if msg == sentinel.Error() {
		if sentinel == service.ErrForbidden {
			return "access denied"
		}
		return msg
	}
	return strings.TrimSuffix(msg, ": "+sentinel.Error())
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// actor builds the service caller from the JWT claims and request metadata.
func actor(c echo.Context) service.Actor {
	return service.Actor{
		ID:        middleware.UserID(c),
		Role:      middleware.Role(c),
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// pageQuery reads ?page= and ?limit=; missing or malformed values are 0 and
// replaced by the service defaults.
func pageQuery(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return page, limit
}

// uploads returns the files sent under field in a multipart body.
func uploads(c echo.Context, field string) ([]storage.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, badRequest("multipart form expected")
	}
	headers := form.File[field]
	out := make([]storage.Upload, 0, len(headers))
	for _, fh := range headers {
		out = append(out, storage.Upload{
			Field:        field,
			OriginalName: fh.Filename,
			ContentType:  fh.Header.Get(echo.HeaderContentType),
			Size:         fh.Size,
			Open:         func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out, nil
}

// upload returns the single file sent under field.
func upload(c echo.Context, field string) (storage.Upload, error) {
	us, err := uploads(c, field)
	if err != nil {
		return storage.Upload{}, err
	}
	if len(us) == 0 {
		return storage.Upload{}, service.NewValidationError(field, storage.ErrNoFile.Error())
	}
	return us[0], nil
}

// date accepts "2006-01-02" or RFC 3339 in JSON bodies.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("invalid date " + strconv.Quote(s))
	}
	return t.UTC(), nil
}

func (d *date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func (d *date) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

// bind decodes the JSON body into dst, reporting decode failures as 400.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Internal != nil {
			return badRequest("invalid request body: " + he.Internal.Error())
		}
		return badRequest("invalid request body")
	}
	return nil
}

// sendFile streams f to the client and closes it.
func sendFile(c echo.Context, f *service.File) error {
	defer f.Body.Close()
	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": f.Name}))
	h.Set(echo.HeaderXContentTypeOptions, "nosniff")
	return c.Stream(http.StatusOK, f.ContentType, f.Body)
}
