package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/showroom/internal/apitest"
	"github.com/Veraticus/showroom/internal/certs"
	"github.com/Veraticus/showroom/internal/cli"
	"github.com/Veraticus/showroom/internal/config"
)

func devserverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local fake of the analytics API with demo data",
		Long: `Serve the analytics API from memory with a year of generated demo data.
Point the client at it with --api-url or api.base_url to try things out
without a real backend. Request metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: runDevserver,
	}
	cmd.Flags().String("addr", "", "listen address (default: devserver.addr)")
	cmd.Flags().String("username", "demo", "login accepted by the server")
	cmd.Flags().String("password", "demo-password", "password for --username")
	cmd.Flags().StringSlice("cors-origin", nil, "allowed browser origins (default: any)")
	cmd.Flags().Bool("no-storage", false, "report file storage as not configured")
	cmd.Flags().Bool("empty", false, "start without demo data")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate")
	return cmd
}

func runDevserver(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("devserver.addr")
	}
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	origins, _ := cmd.Flags().GetStringSlice("cors-origin")
	noStorage, _ := cmd.Flags().GetBool("no-storage")
	empty, _ := cmd.Flags().GetBool("empty")
	useTLS, _ := cmd.Flags().GetBool("tls")

	logger := slog.Default()
	metrics := apitest.NewMetrics()
	fake := apitest.New(
		apitest.WithUser(username, password),
		apitest.WithStorageConfigured(!noStorage),
		apitest.WithLogger(logger),
		apitest.WithMetrics(metrics),
	)
	if !empty {
		fake.SeedDemo(time.Now())
	}

	router := mux.NewRouter()
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(apitest.CORSHandler(fake.Handler(), origins))

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	var certFile string
	if useTLS {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		store := certs.NewStore(cfg.CertDir())
		cert, err := store.Ensure()
		if err != nil {
			return fmt.Errorf("failed to prepare certificate: %w", err)
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
		scheme = "https"
		certFile = store.CertFile()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess("Fake analytics API listening on "+scheme+"://"+addr))
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Sign in with %s / %s", username, password)))
	if certFile != "" {
		fmt.Fprintln(out, cli.FormatInfo("Trust it with api.ca_file: "+certFile))
	}

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() {
		if useTLS {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver stopped: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down devserver")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
