package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureYAML = `
categories:
  - id: invoice
    name: Invoices
    description: Bills with totals
  - id: receipt
    name: Receipts
    description: Proof of payment
documents:
  - id: "1"
    filename: invoice-march.pdf
    status: Processed
    category_id: invoice
    kv_data:
      - key: Total Amount
        value: $5,000
  - id: "2"
    filename: receipt-coffee.pdf
    status: Uploaded
    category_id: receipt
  - id: "3"
    filename: scan.pdf
    status: Unknown
`

func runDashboard(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(fixtureYAML), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--source", "fixture", "--fixture", path, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestPoolsCommand(t *testing.T) {
	out, _, err := runDashboard(t, "pools", "--tab", "pending")
	if err != nil {
		t.Fatalf("pools: %v", err)
	}
	if !strings.Contains(out, "receipt-coffee.pdf") || strings.Contains(out, "invoice-march.pdf") {
		t.Fatalf("unexpected pending pool output:\n%s", out)
	}
}

func TestPoolsCommandFiltersByCategoryName(t *testing.T) {
	out, _, err := runDashboard(t, "pools", "--category", "invoices", "--search", "MARCH")
	if err != nil {
		t.Fatalf("pools: %v", err)
	}
	if !strings.Contains(out, "Invoices / documents") || !strings.Contains(out, "invoice-march.pdf") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPoolsCommandRejectsUnknownTab(t *testing.T) {
	if _, _, err := runDashboard(t, "pools", "--tab", "archive"); err == nil {
		t.Fatalf("expected error for unknown tab")
	}
}

func TestUploadCommandRequiresCategory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "invoice.pdf")
	if err := os.WriteFile(file, []byte("%PDF"), 0o600); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	_, errOut, err := runDashboard(t, "upload", file)
	if err == nil || !strings.Contains(errOut, "select a category") {
		t.Fatalf("expected validation failure, got %v / %q", err, errOut)
	}

	out, _, err := runDashboard(t, "upload", file, "--category", "Invoices")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, "Uploaded invoice.pdf") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestKVCommand(t *testing.T) {
	out, _, err := runDashboard(t, "kv", "1", "Invoice Number=INV-1", "Total Amount=$7")
	if err != nil {
		t.Fatalf("kv: %v", err)
	}
	if !strings.Contains(out, "Invoice Number: INV-1") || !strings.Contains(out, "Total Amount: $7") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, _, err := runDashboard(t, "kv", "1", "no-equals"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestArchiveUnknownDocumentReportsStatus(t *testing.T) {
	_, errOut, err := runDashboard(t, "archive", "missing")
	if err == nil || !strings.Contains(errOut, "404 Not Found: document not found") {
		t.Fatalf("expected 404 status line, got %v / %q", err, errOut)
	}
}

func TestCategoriesDeleteReferenced(t *testing.T) {
	_, errOut, err := runDashboard(t, "categories", "delete", "Receipts")
	if err == nil || !strings.Contains(errOut, "409") {
		t.Fatalf("expected conflict, got %v / %q", err, errOut)
	}
}

func TestChatCommand(t *testing.T) {
	out, _, err := runDashboard(t, "chat", "1", "what is the total?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "you: what is the total?") || !strings.Contains(out, "assistant: Mock response to: what is the total?") {
		t.Fatalf("unexpected transcript:\n%s", out)
	}
}

func TestWatchCommandStopsAfterCount(t *testing.T) {
	out, _, err := runDashboard(t, "watch", "--interval", "5ms", "--count", "2")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if strings.Count(out, "health OK") != 2 {
		t.Fatalf("expected two updates:\n%s", out)
	}
	if !strings.Contains(out, "documents 3  processed 1  pending 1  unknown 1") {
		t.Fatalf("unexpected stats:\n%s", out)
	}
}
