package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/report-writer/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Messages shown to users for failures that have a known cause.
const (
	MsgAuthFailed     = "模型服务认证失败，请检查 API Key"
	MsgModelNoKey     = "未配置模型服务 API Key，请在环境变量中设置 LLM_API_KEY"
	MsgEncoding       = "内容包含无法识别的字符编码，请移除引用资料或知识库内容后重试"
	MsgDocNotFound    = "文档不存在"
	MsgEmptyOutput    = "模型未返回有效内容，请重试"
	MsgInternalFailed = "服务内部错误，请稍后重试"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if data != nil {
		// The status line is already sent; an encoding failure can only be logged by the caller.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes {"error": message}
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, entity.ErrorResponse{Error: message})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Status maps an error to the status code and the message safe to show the
// user. fallback is used for errors without a known cause.
func Status(err error, fallback string) (int, string) {
	var vErr *entity.ValidationError
	switch {
	case errors.As(err, &vErr):
		if vErr.Reason != "" {
			return http.StatusBadRequest, vErr.Reason
		}
		return http.StatusBadRequest, vErr.Error()
	case errors.Is(err, entity.ErrDocumentNotFound):
		return http.StatusNotFound, MsgDocNotFound
	case errors.Is(err, entity.ErrModelNotConfigured):
		return http.StatusServiceUnavailable, MsgModelNoKey
	case entity.IsAuthError(err):
		return http.StatusInternalServerError, MsgAuthFailed
	case entity.IsEncodingError(err):
		return http.StatusInternalServerError, MsgEncoding
	case errors.Is(err, entity.ErrEmptyCompletion):
		return http.StatusInternalServerError, MsgEmptyOutput
	default:
		if fallback == "" {
			fallback = MsgInternalFailed
		}
		return http.StatusInternalServerError, fallback
	}
}

// HandleError logs err and answers with the mapped status and message.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	status, message := Status(err, fallback)
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	Error(w, status, message)
}
