package api

import (
	"errors"
	"fmt"
)

// NetworkError описывает сбой транспорта: отказ соединения, таймаут, обрыв.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError описывает неуспешный ответ сервера: код не 2xx или тело {"status":"error"}.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "unexpected response"
	}
	return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.StatusCode, msg)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// IsNetwork сообщает, вызвана ли ошибка сбоем транспорта.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsServer сообщает, вызвана ли ошибка неуспешным ответом сервера.
func IsServer(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// Reason возвращает сообщение сервера из ServerError, если оно есть.
func Reason(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
