package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/report"
	"modguard/backend/internal/storage"
	"modguard/backend/internal/warning"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	warnings := warning.NewAccumulator(storageSvc)
	reports := report.NewQueue(storageSvc)

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "warn":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin warn <user_id> <chat_id> [reason] [severity]")
			os.Exit(1)
		}
		userID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Println("Invalid user ID. Please provide an integer.")
			os.Exit(1)
		}
		chatID, err := strconv.ParseInt(os.Args[3], 10, 64)
		if err != nil {
			fmt.Println("Invalid chat ID. Please provide an integer.")
			os.Exit(1)
		}
		reason := "issued by operator"
		if len(os.Args) > 4 {
			reason = os.Args[4]
		}
		severity := 1
		if len(os.Args) > 5 {
			severity, err = strconv.Atoi(os.Args[5])
			if err != nil {
				fmt.Println("Invalid severity. Please provide an integer.")
				os.Exit(1)
			}
		}
		w, err := warnings.Issue(userID, chatID, reason, 0, severity, nil)
		if err != nil {
			log.Fatalf("Error issuing warning: %v", err)
		}
		fmt.Printf("Warning #%d issued to user %d.\n", w.ID, userID)

	case "unwarn":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unwarn <warning_id>")
			os.Exit(1)
		}
		warningID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid warning ID. Please provide an integer.")
			os.Exit(1)
		}
		if err := warnings.Revoke(uint(warningID)); err != nil {
			log.Fatalf("Error revoking warning: %v", err)
		}
		fmt.Printf("Warning %d has been revoked.\n", warningID)

	case "resolve-report":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin resolve-report <report_id> <status> [resolution]")
			os.Exit(1)
		}
		reportID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid report ID. Please provide an integer.")
			os.Exit(1)
		}
		resolution := ""
		if len(os.Args) > 4 {
			resolution = os.Args[4]
		}
		if _, err := reports.Resolve(uint(reportID), os.Args[3], 0, resolution); err != nil {
			log.Fatalf("Error resolving report: %v", err)
		}
		fmt.Printf("Report %d resolved as %s.\n", reportID, os.Args[3])

	case "list-pending":
		limit := 20
		if len(os.Args) > 2 {
			if n, err := strconv.Atoi(os.Args[2]); err == nil {
				limit = n
			}
		}
		pending, err := reports.Pending(limit)
		if err != nil {
			log.Fatalf("Error listing reports: %v", err)
		}
		if len(pending) == 0 {
			fmt.Println("No pending reports.")
			return
		}
		for _, r := range pending {
			fmt.Printf("#%d  reporter=%d reported=%d type=%s reason=%q filed=%s\n",
				r.ID, r.ReporterID, r.ReportedUserID, r.ReportType, r.Reason,
				r.CreatedAt.Format(time.RFC3339))
		}

	case "user-stats":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin user-stats <user_id>")
			os.Exit(1)
		}
		userID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Println("Invalid user ID. Please provide an integer.")
			os.Exit(1)
		}
		snap, err := storageSvc.UserSnapshot(userID, time.Now())
		if err != nil {
			log.Fatalf("Error loading user: %v", err)
		}
		printSnapshot(snap)

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}

func printSnapshot(snap *models.UserSnapshot) {
	fmt.Printf("User %d (%s)\n", snap.User.UserID, snap.User.DisplayName())
	fmt.Printf("  rating:           %d\n", snap.User.Rating)
	fmt.Printf("  reactions:        +%d / -%d / =%d\n",
		snap.User.PositiveReactions, snap.User.NegativeReactions, snap.User.NeutralReactions)
	fmt.Printf("  reports received: %d (pending %d)\n", snap.User.ReportsReceived, snap.PendingReports)
	fmt.Printf("  active warnings:  %d\n", snap.ActiveWarnings)
	for _, reason := range snap.WarningReasons {
		fmt.Printf("    - %s\n", reason)
	}
}
