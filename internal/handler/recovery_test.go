package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SergeyBurlaka/muzei/internal/handler"
	"github.com/SergeyBurlaka/muzei/internal/logger"

	"go.uber.org/zap"
)

func TestRecovery(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	recovery := handler.Recovery(log, panicHandler)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	recovery.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("wrong status code %d", w.Code)
	}
}
