package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/policonsole/internal/console/authgate"
	"github.com/dmitrijs2005/policonsole/internal/console/session"
)

type view func(ctx context.Context, st session.AuthState) error

// protected runs v only when the gate authorizes the session. A redirect
// shows its reason and then the login prompt; a transient directory outage
// stops there.
func (a *App) protected(ctx context.Context, v view) error {
	d := a.gate.RequireAuthenticated(ctx)
	if d.Authorized() {
		return v(ctx, d.State())
	}

	fmt.Fprintln(a.out, d.Reason().Message())
	if d.Reason() == authgate.DirectoryUnavailable {
		return nil
	}

	if err := a.Login(ctx); err != nil {
		return err
	}
	return v(ctx, a.sessions.Current())
}

// WhoAmI shows the signed-in agent.
func (a *App) WhoAmI(ctx context.Context) error {
	return a.protected(ctx, func(_ context.Context, st session.AuthState) error {
		fmt.Fprintf(a.out, "NIP:     %s\n", st.Subject)
		fmt.Fprintf(a.out, "Name:    %s\n", st.DisplayName)
		if st.Profile.Email != "" {
			fmt.Fprintf(a.out, "Email:   %s\n", st.Profile.Email)
		}
		if st.Profile.Monitor {
			fmt.Fprintln(a.out, "Role:    monitor")
		}
		return nil
	})
}

// Dashboard shows headline counts over the records.
func (a *App) Dashboard(ctx context.Context) error {
	return a.protected(ctx, func(ctx context.Context, st session.AuthState) error {
		ctx, cancel := context.WithTimeout(ctx, a.config.DirectoryTimeout)
		defer cancel()

		s, err := a.stats.Stats(ctx)
		if err != nil {
			a.logger.Warn(ctx, "dashboard unavailable", "error", err)
			fmt.Fprintln(a.out, authgate.DirectoryUnavailable.Message())
			return err
		}

		fmt.Fprintf(a.out, "Welcome, %s\n", st.DisplayName)
		fmt.Fprintf(a.out, "Agents:      %d active of %d\n", s.ActiveAgents, s.TotalAgents)
		fmt.Fprintf(a.out, "Courses:     %d visible of %d\n", s.VisibleCourses, s.TotalCourses)
		fmt.Fprintf(a.out, "Activities:  %d scheduled\n", s.Activities)
		return nil
	})
}
