package main

import (
	"bufio"
	"context"
	"flag"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"riskgate/grpc"
)

// A command line utility to send test requests to the risk gate
func main() {
	// Parse command line args
	grpcHostArg := flag.String("grpchost", "localhost:37291", "risk gate gRPC host to send the request to.")
	uriArg := flag.String("uri", "/index.php?hello=world", "URI to pack into the request. Cannot be used with -rawrequest.")
	rawRequestFilenameArg := flag.String("rawrequest", "./myrequest.txt", "Path to file containing a full HTTP request. Cannot be used with -uri.")
	remoteAddrArg := flag.String("remoteaddr", "127.0.0.1:50000", "Client address the request appears to come from.")
	userAgentArg := flag.String("useragent", "Mozilla/5.0 (X11; Linux x86_64) riskgate-testclient", "User-Agent header to send with -uri.")
	endpointArg := flag.String("endpoint", "", "Endpoint name the request is routed to.")
	issueTokenArg := flag.Bool("issuetoken", false, "Ask for a verification token first and send it as the captcha cookie.")
	flag.Parse()
	wasFlagSet := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { wasFlagSet[f.Name] = true })

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if wasFlagSet["uri"] && wasFlagSet["rawrequest"] {
		logger.Fatal().Msg("uri cannot be provided together with rawrequest")
	}

	req := &grpc.HTTPRequest{
		Method:     "GET",
		RemoteAddr: *remoteAddrArg,
		Endpoint:   *endpointArg,
		Headers:    []grpc.HeaderPair{{Key: "User-Agent", Value: *userAgentArg}},
	}
	uri := *uriArg

	// Read raw request from file if rawrequest command line arg was given
	if wasFlagSet["rawrequest"] {
		file, err := os.Open(*rawRequestFilenameArg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error while opening raw request")
		}
		defer file.Close()

		r, err := http.ReadRequest(bufio.NewReader(file))
		if err != nil {
			logger.Fatal().Err(err).Msg("Error while parsing raw request")
		}

		req.Method = r.Method
		uri = r.RequestURI
		req.Headers = nil
		for headername, values := range r.Header {
			for _, v := range values {
				req.Headers = append(req.Headers, grpc.HeaderPair{Key: headername, Value: v})
			}
		}
		for _, c := range r.Cookies() {
			if req.Cookies == nil {
				req.Cookies = make(map[string]string)
			}
			req.Cookies[c.Name] = c.Value
		}
	}

	u, err := url.ParseRequestURI(uri)
	if err != nil {
		logger.Fatal().Err(err).Str("uri", uri).Msg("Invalid URI")
	}
	req.Path = u.Path
	for k := range u.Query() {
		if req.Query == nil {
			req.Query = make(map[string]string)
		}
		req.Query[k] = u.Query().Get(k)
	}

	// Establish gRPC connection
	conn, err := gogrpc.NewClient(*grpcHostArg, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Fatal().Err(err).Msg("Error while connecting")
	}
	defer conn.Close()
	client := grpc.NewRiskGateClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if *issueTokenArg {
		tok, err := client.IssueToken(ctx, req)
		if err != nil {
			logger.Fatal().Err(err).Msg("IssueToken failed")
		}
		if req.Cookies == nil {
			req.Cookies = make(map[string]string)
		}
		if req.Query == nil {
			req.Query = make(map[string]string)
		}
		req.Cookies[tok.Name] = tok.Token
		req.Query[tok.Name] = tok.Token
		logger.Info().Int64("maxAgeSeconds", tok.MaxAge).Msg("Got verification token")
	}

	d, err := client.Evaluate(ctx, req)
	if err != nil {
		logger.Fatal().Err(err).Msg("Evaluate failed")
	}

	logger.Info().
		Str("decision", d.Decision).
		Str("action", d.Action).
		Int("hardness", d.Hardness).
		Str("template", d.Template).
		Strs("reasons", d.Reasons).
		Str("txid", d.TransactionID).
		Msg("Got disposition")
}
