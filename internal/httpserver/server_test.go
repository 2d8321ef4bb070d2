package httpserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rmiatl/leadcall-proxy/internal/httpserver"
)

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

var _ = Describe("Server", func() {
	DescribeTable("address validation",
		func(addr string, valid bool) {
			srv, err := httpserver.New(addr, noop)
			if valid {
				Expect(err).NotTo(HaveOccurred())
				Expect(srv.Addr()).To(Equal(addr))
			} else {
				Expect(err).To(HaveOccurred())
				Expect(srv).To(BeNil())
			}
		},
		Entry("host name", "localhost:8080", true),
		Entry("ip address", "127.0.0.1:8080", true),
		Entry("port only", ":8080", true),
		Entry("too many colons", "invalid:host:port", false),
		Entry("missing port", "localhost", false),
		Entry("empty port", "localhost:", false),
		Entry("bad host", "bad_host!:8080", false),
	)

	It("accepts options", func() {
		srv, err := httpserver.New(":8080", noop,
			httpserver.WithWriteTimeout(time.Minute),
			httpserver.WithShutdownTimeout(time.Second))
		Expect(err).NotTo(HaveOccurred())
		Expect(srv).NotTo(BeNil())
	})

	Describe("lifecycle", func() {
		var srv *httpserver.Server

		start := func(port string, h http.Handler, opts ...httpserver.Option) {
			var err error
			srv, err = httpserver.New(port, h, opts...)
			Expect(err).NotTo(HaveOccurred())

			go func() {
				_ = srv.Start()
			}()
			Eventually(func() error {
				resp, err := http.Head("http://localhost" + port + "/ready")
				if err == nil {
					resp.Body.Close()
				}
				return err
			}).Should(Succeed())
		}

		AfterEach(func() {
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}
		})

		It("serves the handler", func() {
			start(":19999", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("pong"))
			}))

			resp, err := http.Get("http://localhost:19999/ping")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal("pong"))
		})

		It("lets an in-flight lead finish before shutting down", func() {
			release := make(chan struct{})
			start(":19997", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					<-release
				}
				_, _ = w.Write([]byte("done"))
			}))

			bodyCh := make(chan string, 1)
			go func() {
				defer GinkgoRecover()
				resp, err := http.Post("http://localhost:19997/", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, _ := io.ReadAll(resp.Body)
				bodyCh <- string(body)
			}()
			time.Sleep(50 * time.Millisecond)

			shutdownErr := make(chan error, 1)
			go func() {
				shutdownErr <- srv.Shutdown(context.Background())
			}()
			close(release)

			Eventually(bodyCh).Should(Receive(Equal("done")))
			Eventually(shutdownErr).Should(Receive(BeNil()))
		})

		It("gives up on stuck requests after the shutdown timeout", func() {
			stuck := make(chan struct{})
			DeferCleanup(func() { close(stuck) })

			start(":19998", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodPost {
					<-stuck
				}
			}), httpserver.WithShutdownTimeout(100*time.Millisecond))

			go func() {
				resp, err := http.Post("http://localhost:19998/", "application/json", nil)
				if err == nil {
					resp.Body.Close()
				}
			}()
			time.Sleep(50 * time.Millisecond)

			err := srv.Shutdown(context.Background())
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})
	})
})
