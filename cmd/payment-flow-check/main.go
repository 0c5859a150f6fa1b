package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bridge-pos-payments/internal/payments"
	"bridge-pos-payments/internal/progress"
	"bridge-pos-payments/internal/terminal"
	"bridge-pos-payments/internal/vendors/simulated"
)

func main() {
	scriptFile := flag.String("script", "", "JSONL file with simulated terminal steps")
	amount := flag.Int64("amount", 2500, "amount in centavos")
	paymentType := flag.String("type", "CREDIT", "payment type (CREDIT, DEBIT, VOUCHER, PIX)")
	delay := flag.Int("delay", 50, "delay between simulated steps in milliseconds")
	code := flag.String("activation-code", "403938", "activation code")
	verbose := flag.Bool("v", false, "log gateway activity")
	flag.Parse()

	logger := zap.NewNop().Sugar()
	if *verbose {
		dev, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		logger = dev.Sugar()
	}

	var kind terminal.PaymentType
	if err := json.Unmarshal([]byte(strconv.Quote(*paymentType)), &kind); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payment type: %v\n", err)
		os.Exit(2)
	}

	gateway, err := simulated.NewGateway(logger, simulated.Settings{
		SerialNumber: "FLOWCHECK01",
		ScriptFile:   *scriptFile,
		StepDelayMS:  delay,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create simulated terminal: %v\n", err)
		os.Exit(1)
	}
	client := payments.NewClient(gateway, payments.NewSession(*code), logger, payments.Options{})
	defer func() { _ = client.Close() }()

	updates, cancel := client.Subscribe(64)
	defer cancel()
	go printSnapshots(updates)

	fmt.Println("=== Payment Flow Check ===")
	failed := 0

	fmt.Println("\n1. Activating terminal...")
	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := client.Activate(ctx, *code); err != nil {
		fmt.Printf("   FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   OK: %s %s authenticated\n", client.Model(), client.SerialNumber())

	fmt.Println("\n2. Requesting payment...")
	tx, err := client.RequestPayment(ctx, terminal.PaymentRequest{
		Amount:          *amount,
		Type:            kind,
		InstallmentPlan: terminal.InstallmentNone,
		Installments:    1,
		UserReference:   "FLOWCHECK",
	})
	if err != nil {
		fmt.Printf("   FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("   OK: code=%s id=%s amount=%s brand=%s\n", tx.TransactionCode, tx.TransactionID, tx.Amount, tx.CardBrand)

	fmt.Println("\n3. Checking last approved transaction...")
	last, err := client.LastApprovedTransaction()
	switch {
	case err != nil:
		fmt.Printf("   FAIL: %v\n", err)
		failed++
	case last.TransactionCode != tx.TransactionCode:
		fmt.Printf("   FAIL: last transaction %s, expected %s\n", last.TransactionCode, tx.TransactionCode)
		failed++
	default:
		fmt.Printf("   OK: %s\n", last.TransactionCode)
	}

	fmt.Println("\n4. Rejecting an invalid request...")
	if _, err := client.RequestPayment(ctx, terminal.PaymentRequest{Amount: 0, Type: kind, InstallmentPlan: terminal.InstallmentNone, Installments: 1}); terminal.IsCode(err, terminal.CodeInvalidArgument) {
		fmt.Printf("   OK: %v\n", err)
	} else {
		fmt.Printf("   FAIL: expected INVALID_ARG, got %v\n", err)
		failed++
	}

	fmt.Println("\n5. Voiding payment...")
	voided, err := client.RequestVoid(ctx, terminal.VoidRequest{TransactionCode: tx.TransactionCode, TransactionID: tx.TransactionID})
	if err != nil {
		fmt.Printf("   FAIL: %v\n", err)
		failed++
	} else {
		fmt.Printf("   OK: void code=%s\n", voided.TransactionCode)
	}

	fmt.Println("\n6. Voiding the same payment again...")
	if _, err := client.RequestVoid(ctx, terminal.VoidRequest{TransactionCode: tx.TransactionCode, TransactionID: tx.TransactionID}); err != nil {
		fmt.Printf("   OK: rejected with %v\n", err)
	} else {
		fmt.Println("   FAIL: second void was approved")
		failed++
	}

	// Let the printer goroutine drain the last snapshots.
	time.Sleep(100 * time.Millisecond)

	if failed > 0 {
		fmt.Printf("\n=== Payment Flow Check Failed (%d) ===\n", failed)
		os.Exit(1)
	}
	fmt.Println("\n=== Payment Flow Check Complete ===")
}

func printSnapshots(updates <-chan progress.Snapshot) {
	for snap := range updates {
		line := fmt.Sprintf("    [%s] %s", snap.State, snap.Message)
		if snap.Keystrokes > 0 {
			line += fmt.Sprintf(" (%d)", snap.Keystrokes)
		}
		if snap.Err != nil {
			line += fmt.Sprintf(" error=%s", snap.Err.Code)
		}
		fmt.Println(line)
	}
}
