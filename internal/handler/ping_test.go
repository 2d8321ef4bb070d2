package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rmiatl/leadcall-proxy/internal/handler"
	"github.com/rmiatl/leadcall-proxy/internal/healthcheck"
)

var _ = Describe("PingHandler", func() {
	var (
		probed int
		h      *handler.PingHandler
	)

	BeforeEach(func() {
		probed = 0
		probe := func(context.Context) []healthcheck.Result {
			probed++
			return []healthcheck.Result{
				{URL: "https://ipqs.example.com", Pass: true, Status: 200},
				{URL: "https://leads.example.com", Error: "timeout"},
			}
		}
		monitored := func() map[string]bool {
			return map[string]bool{"https://ipqs.example.com": true, "https://leads.example.com": false}
		}
		h = handler.NewPingHandler(handler.NewAccess("key", nil, discardLogger()), probe, monitored)
	})

	ping := func(target, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	It("should answer pong", func() {
		w := ping("/ping", "10.1.1.1:5000")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("pong"))
	})

	It("should run the probe for admins", func() {
		w := ping("/ping?all", "127.0.0.1:5000")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(probed).To(Equal(1))

		var report struct {
			Results   []healthcheck.Result `json:"results"`
			Monitored map[string]bool      `json:"monitored"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &report)).To(Succeed())
		Expect(report.Results).To(HaveLen(2))
		Expect(report.Results[0].Pass).To(BeTrue())
		Expect(report.Results[1].Error).To(Equal("timeout"))
		Expect(report.Monitored).To(HaveKeyWithValue("https://ipqs.example.com", true))
		Expect(report.Monitored).To(HaveKeyWithValue("https://leads.example.com", false))
	})

	It("should not probe for other callers", func() {
		w := ping("/ping?all", "10.1.1.1:5000")
		Expect(w.Body.String()).To(Equal("pong"))
		Expect(probed).To(BeZero())
	})
})
