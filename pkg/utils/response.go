package utils

import (
	"encoding/json"
	"net/http"
)

// Response 所有接口统一携带的响应头对象
type Response struct {
	ResponseStatus  int    `json:"responseStatus"`
	ResponseMessage string `json:"responseMessage"`
}

// Payload 响应体中与 response 并列的业务数据
type Payload map[string]interface{}

// writeJSON 写入JSON响应
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// 如果编码失败，写入简单的错误响应
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteEnvelope 写入带 response 信封的响应，payload 与信封平铺在同一层
func WriteEnvelope(w http.ResponseWriter, httpStatus, responseStatus int, message string, payload Payload) {
	body := Payload{
		"response": Response{
			ResponseStatus:  responseStatus,
			ResponseMessage: message,
		},
	}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, httpStatus, body)
}

// WriteOK 写入200成功响应
func WriteOK(w http.ResponseWriter, message string, payload Payload) {
	WriteEnvelope(w, http.StatusOK, http.StatusOK, message, payload)
}

// WriteCreated 写入创建成功响应（历史约定：HTTP 201，信封内 responseStatus 200）
func WriteCreated(w http.ResponseWriter, message string, payload Payload) {
	WriteEnvelope(w, http.StatusCreated, http.StatusOK, message, payload)
}

// WriteBadRequest 写入400错误响应
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusBadRequest, http.StatusBadRequest, message, nil)
}

// WriteUnauthorized 写入401错误响应
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusUnauthorized, http.StatusUnauthorized, message, nil)
}

// WriteForbidden 写入403错误响应
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusForbidden, http.StatusForbidden, message, nil)
}

// WriteNotFound 写入404错误响应
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusNotFound, http.StatusNotFound, message, nil)
}

// WriteConflict 写入409错误响应
func WriteConflict(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusConflict, http.StatusConflict, message, nil)
}

// WriteInternalError 写入500错误响应（信封形式，用于非处理器路径）
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteEnvelope(w, http.StatusInternalServerError, http.StatusInternalServerError, message, nil)
}

// WriteServerError 处理器内部错误的统一出口：细节只进日志，不回给调用方
func WriteServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"msg": "Server Error"})
}

// WriteMsg 写入历史遗留的 {msg: ...} 响应（登录失败等路径仍依赖该形状）
func WriteMsg(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, map[string]string{"msg": msg})
}

// ParseJSONBody 解析JSON请求体
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// GetQueryParam 获取查询参数，如果不存在则返回默认值
func GetQueryParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
