package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"societysync/internal/domain"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// decodeBody 解析请求体，格式错误时返回 400
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, out any) bool {
	if err := readBodyJSON(r, maxBytes, out); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// pathID 读取路径参数 {id}
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid id"))
		return 0, false
	}
	return id, true
}

// getClientIP 优先使用代理头
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeError 按错误类型映射 HTTP 状态码，未知错误只返回通用信息
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var (
		ve *domain.ValidationError
		ae *domain.AuthError
		nf *domain.NotFoundError
		de *domain.DuplicateError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, Fail(ve.Error()))
	case errors.As(err, &ae):
		status := http.StatusUnauthorized
		if ae.Forbidden {
			status = http.StatusForbidden
		}
		writeJSON(w, status, Fail(ae.Error()))
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, Fail(nf.Error()))
	case errors.As(err, &de):
		writeJSON(w, http.StatusConflict, Fail(de.Error()))
	default:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("internal server error"))
	}
}
