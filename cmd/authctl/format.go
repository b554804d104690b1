package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/notifications"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/users"
)

var stateColours = map[session.State]lipgloss.Color{
	session.Authenticated: lipgloss.Color("42"),
	session.Expired:       lipgloss.Color("214"),
	session.Anonymous:     lipgloss.Color("241"),
}

// renderState colours the state when w is a terminal and leaves it plain otherwise.
func renderState(w io.Writer, state session.State) string {
	return lipgloss.NewRenderer(w).NewStyle().
		Bold(true).
		Foreground(stateColours[state]).
		Render(state.String())
}

func printUser(w io.Writer, u *users.User) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Name:\t%s\n", u.DisplayName())
	fmt.Fprintf(tw, "Active:\t%t\n", u.IsActive)
	fmt.Fprintf(tw, "Staff:\t%t\n", u.IsStaff)
	if avatar := utils.Value(u.Avatar); avatar != "" {
		fmt.Fprintf(tw, "Avatar:\t%s\n", avatar)
	}
	if tenantID := utils.Value(u.TenantID); tenantID != "" {
		fmt.Fprintf(tw, "Tenant:\t%s\n", tenantID)
	}
	_ = tw.Flush()
}

func printTenants(w io.Writer, list []*tenants.Tenant, currentID string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSLUG\tACTIVE")
	for _, t := range list {
		marker := ""
		if t.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", marker, t.ID, t.Name, t.Slug, t.IsActive)
	}
	_ = tw.Flush()
}

func printTenant(w io.Writer, t *tenants.Tenant) {
	fmt.Fprintf(w, "%s  %s (%s)\n", t.ID, t.Name, t.Slug)
}

func printNotifications(w io.Writer, inbox *notifications.Inbox, unreadOnly bool) {
	fmt.Fprintf(w, "%d unread\n", inbox.Unread)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTYPE\tCREATED\tMESSAGE")
	for _, n := range inbox.Notifications {
		if unreadOnly && n.Read {
			continue
		}
		marker := ""
		if !n.Read {
			marker = "*"
		}
		message := n.Content
		if n.Title != "" {
			message = n.Title + ": " + n.Content
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, n.ID, n.Type, n.CreatedAt.Local().Format(time.DateTime), message)
	}
	_ = tw.Flush()
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		return "expired " + d.Abs().Round(time.Second).String() + " ago"
	}
	return "in " + d.Round(time.Second).String()
}
