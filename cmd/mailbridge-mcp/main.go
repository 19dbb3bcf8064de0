// Mailbridge MCP server gives an AI host read/search/send access to one
// user's email accounts across Gmail and Microsoft Graph.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/croftd/mailbridge-mcp/internal/auth"
	"github.com/croftd/mailbridge-mcp/internal/compose"
	"github.com/croftd/mailbridge-mcp/internal/config"
	"github.com/croftd/mailbridge-mcp/internal/llm"
	"github.com/croftd/mailbridge-mcp/internal/model"
	"github.com/croftd/mailbridge-mcp/internal/provider"
	"github.com/croftd/mailbridge-mcp/internal/provider/gmail"
	"github.com/croftd/mailbridge-mcp/internal/provider/outlook"
	"github.com/croftd/mailbridge-mcp/internal/search"
	"github.com/croftd/mailbridge-mcp/internal/store"
	"github.com/croftd/mailbridge-mcp/internal/tool"
)

// emailService joins the aggregator and the compose flow into the single
// surface the tool server consumes.
type emailService struct {
	*search.Aggregator
	*compose.Flow
}

func main() {
	httpAddr := flag.String("http-addr", "localhost:0", "HTTP server listen addr")
	envFileParam := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	log, persistLogs := setupLogger(enableStdio, logFile)
	defer persistLogs()

	if envFileParam != nil && *envFileParam != "" {
		if err := godotenv.Load(*envFileParam); err != nil {
			panic(fmt.Errorf("godotenv.Load failed: %w", err))
		}
	}

	cfg, err := config.FromEnv()
	if err != nil {
		panic(fmt.Errorf("config.FromEnv failed: %w", err))
	}

	storeClient := store.NewClient(cfg.StoreURL, cfg.StoreAPIToken)

	googleCfg, microsoftCfg := oauthConfigs(cfg)
	refresher := auth.NewRefresher(storeClient, googleCfg, microsoftCfg, log)

	adapters := map[model.Provider]provider.Adapter{
		model.ProviderGmail:   gmail.NewAdapter(),
		model.ProviderOutlook: outlook.NewAdapter(),
	}

	svc := emailService{
		Aggregator: search.NewAggregator(storeClient, refresher, adapters, log),
		Flow:       compose.NewFlow(llm.NewClient(cfg.LLM), storeClient, refresher, adapters, log),
	}

	srv := tool.NewServer(svc, cfg.OwnerID)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return srv }, nil))

	ln := mustListen(httpAddr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	stopHTTP, errHTTPCh := serveHTTP(&http.Server{Handler: mux}, ln, log)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(srv, log)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		log.WithError(err).Error("http server failed")
	case err := <-errStdioCh:
		log.WithError(err).Error("stdio transport failed")
	case <-shutdown:
		log.Info("shutdown signal received")
	}
}

func oauthConfigs(cfg *config.Config) (googleCfg, microsoftCfg *oauth2.Config) {
	googleCfg = &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		Scopes:       []string{gmailapi.GmailReadonlyScope, gmailapi.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
	microsoftCfg = &oauth2.Config{
		ClientID:     cfg.Microsoft.ClientID,
		ClientSecret: cfg.Microsoft.ClientSecret,
		Scopes:       []string{"https://graph.microsoft.com/Mail.Read", "https://graph.microsoft.com/Mail.Send", "offline_access"},
		Endpoint:     microsoft.AzureADEndpoint("common"),
	}
	return googleCfg, microsoftCfg
}

func serveStdio(srv *mcp.Server, log *logrus.Logger) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		log.Info("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		log.Info("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener, log *logrus.Logger) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		log.WithField("addr", ln.Addr().String()).Info("starting http server")

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.Serve failed: %w", err)
			log.WithError(err).Error("http server stopped")
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("srv.Shutdown failed")
		}

		<-errHTTPCh
		log.Info("http server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr *string) net.Listener {
	if httpAddr == nil {
		panic("-http-addr must be provided")
	}

	ln, err := net.Listen("tcp", *httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func setupLogger(enableStdio *bool, logFile *string) (*logrus.Logger, func()) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		log.SetOutput(f)

		return log, func() {
			if err := f.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "closing log file:", err)
			}
		}
	}

	if *enableStdio {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stdout)
	}

	return log, func() {}
}
