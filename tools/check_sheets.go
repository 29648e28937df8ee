package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Standalone helper to verify that a service-account key pair can open a
// spreadsheet before wiring it into the scanner.
//
// Usage:
//
//	GOOGLE_SHEETS_CLIENT_EMAIL=... GOOGLE_SHEETS_PRIVATE_KEY=... \
//	GOOGLE_SPREADSHEET_ID=... go run tools/check_sheets.go
func main() {
	email := os.Getenv("GOOGLE_SHEETS_CLIENT_EMAIL")
	key := os.Getenv("GOOGLE_SHEETS_PRIVATE_KEY")
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")

	if email == "" || key == "" || spreadsheetID == "" {
		log.Fatal("Please set GOOGLE_SHEETS_CLIENT_EMAIL, GOOGLE_SHEETS_PRIVATE_KEY and GOOGLE_SPREADSHEET_ID environment variables")
	}

	conf := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(strings.ReplaceAll(key, `\n`, "\n")),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	ctx := context.Background()
	svc, err := sheets.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		log.Fatalf("Failed to create sheets service: %v", err)
	}

	doc, err := svc.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		log.Fatalf("Failed to open spreadsheet: %v", err)
	}

	fmt.Printf("Spreadsheet: %s\n", doc.Properties.Title)
	fmt.Println("Sheets:")
	for _, sheet := range doc.Sheets {
		fmt.Printf("  - %s\n", sheet.Properties.Title)
	}
	fmt.Println("\nCredentials are valid. The scanner can mirror to this spreadsheet.")
}
