package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/equipment-booking/internal/application"
	"github.com/example/equipment-booking/internal/booking"
)

var (
	errBadRequestBody     = errors.New("無效的請求格式。")
	errInvalidDate        = errors.New("無效的日期，請使用 YYYY-MM-DD 格式。")
	errInvalidMonth       = errors.New("無效的月份，請使用 YYYY-MM 格式。")
	errInvalidPeriod      = errors.New("無效的節次。")
	errInvalidWeekday     = errors.New("無效的星期，請指定 0 到 6。")
	errMissingIdentity    = errors.New("請先登入。")
	errAdminOnly          = errors.New("只有管理員可以執行此操作。")
	errMissingReservation = errors.New("請指定預約 ID。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr   *application.ValidationError
		svcErr *booking.ServiceError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "輸入內容有誤。",
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "找不到指定的資料。"})
	case errors.Is(err, application.ErrSlotExpired):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_EXPIRED",
			Message:   "此時段已經開始，無法再變更預約。",
		})
	case errors.Is(err, application.ErrSetupRequired):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SETUP_REQUIRED",
			Message:   "系統尚未完成初始設定。",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "帳號或密碼不正確。",
		})
	case errors.Is(err, application.ErrSnapshotUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "SNAPSHOT_UNAVAILABLE",
			Message:   "尚未取得預約資料，請稍後再試。",
		})
	case errors.As(err, &svcErr):
		message := strings.TrimSpace(svcErr.Message)
		if message == "" {
			message = localizedStatusMessage(http.StatusConflict)
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "STORE_REJECTED", Message: message})
	case errors.Is(err, booking.ErrNetworkFailure):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "STORE_UNREACHABLE",
			Message:   "無法連線到資料來源，請稍後再試。",
		})
	case errors.Is(err, booking.ErrMalformedResponse):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "STORE_MALFORMED",
			Message:   "資料來源回傳了無法解析的內容。",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

// requireUser writes 401 and returns false for anonymous requests.
func (r responder) requireUser(ctx context.Context, w http.ResponseWriter) (booking.User, bool) {
	user, ok := UserFromContext(ctx)
	if !ok {
		r.writeError(ctx, w, http.StatusUnauthorized, errMissingIdentity)
		return booking.User{}, false
	}
	return user, true
}

// requireAdmin writes 401 or 403 and returns false unless the user is an administrator.
func (r responder) requireAdmin(ctx context.Context, w http.ResponseWriter) (booking.User, bool) {
	user, ok := r.requireUser(ctx, w)
	if !ok {
		return booking.User{}, false
	}
	if !user.IsAdmin() {
		r.writeError(ctx, w, http.StatusForbidden, errAdminOnly)
		return booking.User{}, false
	}
	return user, true
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "請求內容不正確。"
	case http.StatusUnauthorized:
		return "請先登入。"
	case http.StatusForbidden:
		return "您沒有執行此操作的權限。"
	case http.StatusNotFound:
		return "找不到指定的資料。"
	case http.StatusConflict:
		return "請求與目前的資料狀態衝突。"
	case http.StatusUnprocessableEntity:
		return "輸入內容有誤。"
	default:
		return "伺服器發生內部錯誤。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "account is required":
		return "請輸入帳號。"
	case "password is required":
		return "請輸入密碼。"
	case "user account is required":
		return "缺少使用者帳號。"
	case "date is required":
		return "請選擇日期。"
	case "period does not exist":
		return "指定的節次不存在。"
	case "equipment does not exist":
		return "指定的設備不存在。"
	case "slot is not open for booking":
		return "此時段未開放預約。"
	case "unsupported sort key":
		return "不支援的排序欄位。"
	case "direction must be asc or desc":
		return "排序方向必須是 asc 或 desc。"
	case "select at least one month":
		return "請至少選擇一個月份。"
	case "sheet id is required during setup":
		return "初始設定時必須填寫試算表 ID。"
	case "duration must be positive":
		return "每節長度必須大於 0。"
	case "booking window must be positive":
		return "可預約天數必須大於 0。"
	case "break must not be negative":
		return "下課時間不可為負數。"
	case "name is required":
		return "請輸入設備名稱。"
	case "capacity must be at least 1":
		return "設備數量至少為 1。"
	case "duplicate equipment id":
		return "設備 ID 重複。"
	case "weekday must be unique and between 0 and 6":
		return "星期必須介於 0 到 6 且不可重複。"
	case "range must be HH:MM with start before end":
		return "時段必須是 HH:MM 格式，且開始時間早於結束時間。"
	default:
		if strings.HasPrefix(message, "invalid month ") {
			return "無效的月份: " + strings.Trim(strings.TrimPrefix(message, "invalid month "), `"`)
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
