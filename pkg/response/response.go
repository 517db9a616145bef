package response

import "supplylink/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Meta       *Meta       `json:"meta,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Meta carries pagination details for list endpoints
type Meta struct {
	Total       int64  `json:"total"`
	Page        int    `json:"page"`
	Limit       int    `json:"limit"`
	TotalPages  int    `json:"total_pages"`
	UnreadCount *int64 `json:"unread_count,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paginated wraps a page of results together with its meta block
func Paginated(statusCode int, data interface{}, p pagination.Params, total int64) Response {
	res := Success(statusCode, data)
	res.Meta = &Meta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pagination.TotalPages(total, p.Limit),
	}
	return res
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}
