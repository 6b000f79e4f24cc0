package main

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

const usage = `Usage: admin <command> [args]

Commands:
  create-manager <email> <password> <name> [role] [branch]
  set-status <complaint_id> <status> [notes]
  issue-staff-token <email>
  list-complaints [status]`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// run executes one command. Deferred cleanup happens before main exits.
func run(command string, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("Configuration error: %w", err)
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("Failed to open record store: %w", err)
	}
	defer store.Close(context.Background())

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.StaffTokenTTL, cfg.OwnerTokenTTL, cfg.InviteTokenTTL)
	accounts := auth.NewService(store, tokens)
	// With Redis configured, status changes made here reach the running
	// servers' event streams and share their record locks.
	var events eventhub.Publisher = eventhub.Discard{}
	rdb, err := storage.OpenRedis(ctx, cfg)
	if err != nil {
		fmt.Printf("Warning: %v\n", err)
	}
	if rdb != nil {
		defer rdb.Close()
		events = eventhub.NewHub(rdb)
	}
	complaints := complaint.NewService(store, storage.NewLocker(rdb), tokens, events)

	switch command {
	case "create-manager":
		if len(args) < 3 {
			return errors.New("Usage: admin create-manager <email> <password> <name> [role] [branch]")
		}
		role := models.RoleManager
		if len(args) > 3 {
			role = models.Role(args[3])
		}
		branch := ""
		if len(args) > 4 {
			branch = args[4]
		}
		m, err := accounts.CreateManager(ctx, args[2], args[0], args[1], role, branch)
		if err != nil {
			return fmt.Errorf("Error creating manager: %w", err)
		}
		fmt.Printf("Manager %s (%s) created with id %s.\n", m.Email, m.Role, m.ID)

	case "set-status":
		if len(args) < 2 {
			return errors.New("Usage: admin set-status <complaint_id> <status> [notes]")
		}
		notes := strings.Join(args[2:], " ")
		staff := auth.Capability{Staff: &auth.Claims{Kind: auth.KindStaff, Email: "admin-cli"}}
		c, err := complaints.UpdateStatus(ctx, staff, args[0], models.Status(args[1]), notes)
		if err != nil {
			return fmt.Errorf("Error updating complaint: %w", err)
		}
		fmt.Printf("Complaint %s is now %s.\n", c.ReferenceID, c.Status)

	case "issue-staff-token":
		if len(args) != 1 {
			return errors.New("Usage: admin issue-staff-token <email>")
		}
		m, err := store.GetManagerByEmail(ctx, strings.ToLower(args[0]))
		if err != nil {
			return fmt.Errorf("Error loading manager: %w", err)
		}
		token, err := tokens.IssueStaff(m)
		if err != nil {
			return fmt.Errorf("Error issuing token: %w", err)
		}
		fmt.Println(token)

	case "list-complaints":
		filter := storage.ComplaintFilter{}
		if len(args) > 0 {
			filter.Status = models.Status(args[0])
		}
		list, err := complaints.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("Error listing complaints: %w", err)
		}
		printComplaints(list)

	default:
		return fmt.Errorf("Unknown command\n%s", usage)
	}
	return nil
}

func printComplaints(list []models.Complaint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tID\tSTATUS\tCATEGORY\tEMAIL\tCREATED")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ReferenceID, c.ID, c.Status, c.Category, c.Customer.Email, c.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()
	fmt.Printf("%d complaint(s)\n", len(list))
}
