package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rushteam/winekit/artifact"
	"github.com/rushteam/winekit/proxy"
	"github.com/rushteam/winekit/service"
)

func newProxyCmd(opts *globalOptions) *cobra.Command {
	cfg := service.InvokerConfig{
		Type:         service.InvokerTypeSageMaker,
		EndpointName: os.Getenv("ENDPOINT_NAME"),
		Region:       envOr("AWS_REGION", service.DefaultRegion),
	}
	var addr, contentType string
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve the inference proxy: base64 image in, endpoint payload out",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := service.NewInvoker(cmd.Context(), &cfg)
			if err != nil {
				return err
			}
			h := proxy.NewHandler(inv, opts.logger.With("component", "proxy"))
			h.ContentType = contentType

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			opts.logger.Info("proxy listening", "addr", addr, "endpoint_type", cfg.Type, "endpoint", cfg.EndpointName+cfg.URL)
			return serve(cmd.Context(), addr, proxy.NewRouter(h, reg))
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.StringVar((*string)(&cfg.Type), "endpoint-type", string(cfg.Type), "endpoint type: sagemaker|http")
	f.StringVar(&cfg.EndpointName, "endpoint-name", cfg.EndpointName, "SageMaker endpoint name (env ENDPOINT_NAME)")
	f.StringVar(&cfg.Region, "region", cfg.Region, "SageMaker endpoint region")
	f.StringVar(&cfg.URL, "endpoint-url", "", "HTTP inference URL for --endpoint-type http")
	f.IntVar(&cfg.Timeout, "timeout", 30, "per-call endpoint timeout in seconds (sagemaker and http)")
	f.StringVar(&contentType, "content-type", service.ContentTypeImage, "content type sent to the endpoint")
	return cmd
}

func newServeModelCmd(opts *globalOptions) *cobra.Command {
	var addr, path string
	cmd := &cobra.Command{
		Use:   "serve-model",
		Short: "Serve a trained model bundle over HTTP (POST /invocations)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "latest" {
				resolved, err := latestModelPath(cmd, opts)
				if err != nil {
					return err
				}
				path = resolved
			}
			m, err := service.LoadLocalModel(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer m.Close(context.Background())
			if err := m.Health(cmd.Context()); err != nil {
				return err
			}
			opts.logger.Info("model server listening", "addr", addr, "model", path, "model_version", m.ModelVersion())
			return serve(cmd.Context(), addr, proxy.NewModelRouter(m, opts.logger.With("component", "model-server")))
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8081", "listen address")
	f.StringVar(&path, "model", "model.tar.gz", `model bundle (.tar.gz), model.json, or "latest" to look it up in the run registry`)
	return cmd
}

// latestModelPath 从运行登记中取最近一次训练的模型位置，优先用模型包
func latestModelPath(cmd *cobra.Command, opts *globalOptions) (string, error) {
	rc, cleanup, err := opts.runContext(0)
	if err != nil {
		return "", err
	}
	defer cleanup()
	if rc.Store == nil {
		return "", fmt.Errorf(`--model latest needs --store redis or --store badger`)
	}
	rec, err := artifact.NewRegistry(rc.Store, "").LatestModel(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("look up latest model: %w", err)
	}
	if rec.Model.BundlePath != "" {
		return rec.Model.BundlePath, nil
	}
	return rec.Model.ModelPath, nil
}

// serve 运行 HTTP 服务直到 ctx 取消，然后优雅关闭
func serve(ctx context.Context, addr string, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
