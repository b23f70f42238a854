// Package deploy submits a packaged archive to the platform's SOAP metadata
// API.
package deploy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/internal/auth"
	"github.com/mrhapile/metadeploy/internal/config"
	"github.com/mrhapile/metadeploy/pkg/redact"
)

const statusPath = "/lightning/setup/DeployStatus/home"

// Result describes an accepted deployment. The platform finishes it
// asynchronously.
type Result struct {
	ID        string
	State     string
	Done      bool
	StatusURL string
}

// Client deploys archives.
type Client struct {
	creds       auth.Credentials
	instanceURL string
	statusURL   string
	apiVersion  string
	httpClient  *http.Client
	logger      *zap.Logger
	redactor    redact.Redactor
}

// NewClient creates a deploy client. httpClient and logger may be nil.
func NewClient(s config.Salesforce, apiVersion string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		creds: auth.Credentials{
			TokenURL:     s.TokenURL,
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
		},
		instanceURL: s.InstanceURL,
		statusURL:   s.StatusURL,
		apiVersion:  apiVersion,
		httpClient:  httpClient,
		logger:      logger,
		redactor:    redact.New(),
	}
}

// Deploy logs in and submits the archive at archivePath.
func (c *Client) Deploy(ctx context.Context, archivePath string) (*Result, error) {
	zipContent, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	c.logger.Info("logging in to deployment target")
	tok, err := auth.Exchange(ctx, c.httpClient, c.creds)
	if err != nil {
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	instanceURL := strings.TrimRight(tok.InstanceURL, "/")
	if instanceURL == "" {
		instanceURL = strings.TrimRight(c.instanceURL, "/")
	}
	if instanceURL == "" {
		return nil, errors.New("no instance url from login or configuration")
	}

	endpoint := instanceURL + "/services/Soap/m/" + c.apiVersion
	body := deployEnvelope(tok.AccessToken, base64.StdEncoding.EncodeToString(zipContent))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("SOAPAction", "deploy")

	c.logger.Info("deploying metadata", zap.String("endpoint", endpoint), zap.Int("archiveBytes", len(zipContent)))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deploy request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read deploy response: %w", err)
	}
	c.logger.Debug("soap response", zap.Int("status", resp.StatusCode), zap.String("body", c.redactor.RedactString(string(respBody))))

	env, parseErr := parseEnvelope(respBody)
	if resp.StatusCode != http.StatusOK {
		if parseErr == nil && env.Body.Fault != nil {
			return nil, fmt.Errorf("failed to deploy metadata: %d %s", resp.StatusCode, env.Body.Fault.String())
		}
		return nil, fmt.Errorf("failed to deploy metadata: %d %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if parseErr != nil {
		return nil, fmt.Errorf("decode deploy response: %w", parseErr)
	}
	if env.Body.Response == nil || env.Body.Response.Result.ID == "" {
		return nil, errors.New("deploy response carries no async result id")
	}

	result := env.Body.Response.Result
	statusURL := c.statusURL
	if statusURL == "" {
		statusURL = instanceURL + statusPath
	}
	c.logger.Info("deployment initiated", zap.String("id", result.ID), zap.String("state", result.State))
	return &Result{
		ID:        result.ID,
		State:     result.State,
		Done:      result.Done,
		StatusURL: statusURL,
	}, nil
}

func deployEnvelope(sessionID, zipBase64 string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:met="http://soap.sforce.com/2006/04/metadata">
  <soapenv:Header>
    <met:SessionHeader>
      <met:sessionId>`)
	_ = xml.EscapeText(&b, []byte(sessionID))
	b.WriteString(`</met:sessionId>
    </met:SessionHeader>
  </soapenv:Header>
  <soapenv:Body>
    <met:deploy>
      <met:ZipFile>`)
	b.WriteString(zipBase64)
	b.WriteString(`</met:ZipFile>
      <met:DeployOptions>
        <met:singlePackage>true</met:singlePackage>
      </met:DeployOptions>
    </met:deploy>
  </soapenv:Body>
</soapenv:Envelope>`)
	return b.String()
}

type envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response *deployResponse `xml:"deployResponse"`
		Fault    *fault          `xml:"Fault"`
	} `xml:"Body"`
}

type deployResponse struct {
	Result struct {
		ID    string `xml:"id"`
		State string `xml:"state"`
		Done  bool   `xml:"done"`
	} `xml:"result"`
}

type fault struct {
	Code    string `xml:"faultcode"`
	Message string `xml:"faultstring"`
}

func (f *fault) String() string {
	if f.Code == "" {
		return f.Message
	}
	return f.Code + ": " + f.Message
}

func parseEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
