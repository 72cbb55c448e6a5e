package http_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apiHandler "github.com/Freeeeeet/bizsuite/internal/controller/http"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/service"
)

func TestHandler_Health(t *testing.T) {
	t.Run("database up", func(t *testing.T) {
		router, s := newTestRouter(t)
		s.db.On("Ping", mock.Anything).Return(nil).Once()

		rr := doJSON(t, router, http.MethodGet, "/healthz", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","database":"up"}`, rr.Body.String())
	})

	t.Run("database down still serves", func(t *testing.T) {
		router, s := newTestRouter(t)
		s.db.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

		rr := doJSON(t, router, http.MethodGet, "/healthz", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok","database":"down"}`, rr.Body.String())
	})

	t.Run("no database configured", func(t *testing.T) {
		router := apiHandler.NewHandler(apiHandler.Services{}, saoPaulo, zap.NewNop()).Router()

		rr := doJSON(t, router, http.MethodGet, "/healthz", nil)

		assert.JSONEq(t, `{"status":"ok","database":"unconfigured"}`, rr.Body.String())
	})
}

func TestHandler_CPF(t *testing.T) {
	tests := []struct {
		name string
		cpf  string
		want string
	}{
		{
			name: "valid masked",
			cpf:  "529.982.247-25",
			want: `{"valid":true,"normalized":"52998224725","formatted":"529.982.247-25"}`,
		},
		{
			name: "valid digits",
			cpf:  "11144477735",
			want: `{"valid":true,"normalized":"11144477735","formatted":"111.444.777-35"}`,
		},
		{
			name: "repeated digits",
			cpf:  "00000000000",
			want: `{"valid":false,"normalized":"00000000000","formatted":"000.000.000-00"}`,
		},
		{
			name: "wrong check digit",
			cpf:  "52998224724",
			want: `{"valid":false,"normalized":"52998224724","formatted":"529.982.247-24"}`,
		},
		{
			name: "too short",
			cpf:  "1234",
			want: `{"valid":false,"normalized":"1234"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t)

			rr := doJSON(t, router, http.MethodGet, "/api/v1/cpf/"+tt.cpf, nil)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, tt.want, rr.Body.String())
		})
	}
}

func TestHandler_ComputeReport(t *testing.T) {
	router, s := newTestRouter(t)
	at := time.Date(2024, 3, 15, 0, 0, 0, 0, saoPaulo)
	s.reports.On("Compute", mock.Anything, model.PeriodMonthly, mock.MatchedBy(func(t time.Time) bool {
		return t.Equal(at)
	})).Return(&model.Report{PeriodType: model.PeriodMonthly}, nil).Once()

	rr := doJSON(t, router, http.MethodGet, "/api/v1/reports/monthly/?date=2024-03-15", nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"period_type":"monthly"`)
}

func TestHandler_GenerateReport_UnknownPeriod(t *testing.T) {
	router, s := newTestRouter(t)
	s.reports.On("Generate", mock.Anything, model.PeriodType("daily"), mock.Anything).
		Return(nil, &service.ValidationError{Fields: map[string]string{"period_type": "must be weekly or monthly"}}).Once()

	rr := doJSON(t, router, http.MethodPost, "/api/v1/reports/daily/generate", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandler_ReportChart(t *testing.T) {
	router, s := newTestRouter(t)
	png := []byte("\x89PNG\r\n\x1a\nfake")
	from := time.Date(2023, 10, 1, 0, 0, 0, 0, saoPaulo)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, saoPaulo)
	s.reports.On("Chart", mock.Anything, model.PeriodMonthly,
		mock.MatchedBy(func(t time.Time) bool { return t.Equal(from) }),
		mock.MatchedBy(func(t time.Time) bool { return t.Equal(to) }),
	).Return(png, nil).Once()

	rr := doJSON(t, router, http.MethodGet, "/api/v1/reports/monthly/chart.png?to=2024-03-01", nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, png, rr.Body.Bytes())
}

func TestHandler_Dashboard(t *testing.T) {
	router, s := newTestRouter(t)
	s.reports.On("Dashboard", mock.Anything).Return(&service.Dashboard{Source: "local"}, nil).Once()

	rr := doJSON(t, router, http.MethodGet, "/api/v1/dashboard", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"source":"local"`)
}
