package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Global flags
	serverURL string
	timeout   int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "claimsctl",
	Short:   "Query the claims retrieval service",
	Version: version,
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a question and get a generated answer",
	Long: `Ask a question about indexed claims and policy documents.

Examples:
  # Look up a specific claim
  claimsctl ask "What is the status of claim CLM2024001?"

  # Ask about denials in a time range
  claimsctl ask "Show me denied diabetes claims from 2023"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Run retrieval only and print the ranked candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check server liveness and readiness",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CLAIMS_SERVER_URL", "http://localhost:9020"), "server base URL")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 120, "request timeout in seconds")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(statusCmd)
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func post(path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}
	resp, err := client.Post(strings.TrimRight(serverURL, "/")+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type answerResponse struct {
	Answer        string `json:"answer"`
	LowConfidence bool   `json:"low_confidence"`
	Fallback      bool   `json:"fallback"`
	Reason        string `json:"reason"`
	Retrieval     struct {
		RetrievalID string   `json:"retrieval_id"`
		Verdict     string   `json:"verdict"`
		Actions     []string `json:"actions"`
	} `json:"retrieval"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var resp answerResponse
	if err := post("/v1/claims/answer", map[string]string{"query": query}, &resp); err != nil {
		return err
	}

	if resp.Fallback {
		fmt.Printf("No answer could be generated: %s\n", resp.Reason)
		return nil
	}
	if resp.LowConfidence {
		fmt.Println("(low confidence: the retrieved records may only be loosely related)")
	}
	fmt.Println(resp.Answer)
	fmt.Printf("\n[retrieval %s, verdict %s]\n", resp.Retrieval.RetrievalID, resp.Retrieval.Verdict)
	return nil
}

type retrieveResponse struct {
	Category  string `json:"category"`
	Retrieval struct {
		RetrievalID string   `json:"retrieval_id"`
		Verdict     string   `json:"verdict"`
		Outcome     string   `json:"outcome"`
		Actions     []string `json:"actions"`
		Candidates  []struct {
			ID      string  `json:"id"`
			Source  string  `json:"source"`
			Content string  `json:"content"`
			Score   float32 `json:"score"`
		} `json:"candidates"`
	} `json:"retrieval"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var resp retrieveResponse
	if err := post("/v1/claims/retrieve", map[string]string{"query": query}, &resp); err != nil {
		return err
	}

	fmt.Printf("Category: %s\n", resp.Category)
	fmt.Printf("Verdict:  %s (%s)\n", resp.Retrieval.Verdict, resp.Retrieval.Outcome)
	if len(resp.Retrieval.Actions) > 0 {
		fmt.Printf("Actions:  %s\n", strings.Join(resp.Retrieval.Actions, ", "))
	}
	fmt.Printf("Candidates (%d):\n", len(resp.Retrieval.Candidates))
	for i, c := range resp.Retrieval.Candidates {
		content := c.Content
		if len(content) > 100 {
			content = content[:100] + "..."
		}
		fmt.Printf("  %2d. [%.4f] %s (%s) %s\n", i+1, c.Score, c.ID, c.Source, content)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: time.Duration(timeout) * time.Second}
	base := strings.TrimRight(serverURL, "/")

	for _, probe := range []string{"/healthz", "/readyz"} {
		resp, err := client.Get(base + probe)
		if err != nil {
			return fmt.Errorf("call %s: %w", probe, err)
		}
		resp.Body.Close()
		state := "ok"
		if resp.StatusCode != http.StatusOK {
			state = fmt.Sprintf("failed (%d)", resp.StatusCode)
		}
		fmt.Printf("%-9s %s\n", probe, state)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s returned %d", probe, resp.StatusCode)
		}
	}
	return nil
}
