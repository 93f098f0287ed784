package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/user"
)

// AdminLister resolves the admin audience for broadcast messages.
type AdminLister interface {
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
}

// Dispatcher writes in-app notifications for booking events. Delivery is best
// effort: failures are logged and swallowed so a notification outage never
// fails a booking.
type Dispatcher struct {
	repo  Repository
	users AdminLister
	log   zerolog.Logger
}

func NewDispatcher(repo Repository, users AdminLister, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, users: users, log: log}
}

func (d *Dispatcher) NotifyUser(ctx context.Context, userID uuid.UUID, message string) {
	if _, err := d.repo.Create(ctx, &Notification{RecipientUserID: userID, Message: message}); err != nil {
		d.log.Warn().Err(err).Str("user_id", userID.String()).Msg("notify user failed")
	}
}

func (d *Dispatcher) NotifyAdmins(ctx context.Context, message string) {
	admins, err := d.users.ListByRole(ctx, user.RoleAdmin)
	if err != nil {
		d.log.Warn().Err(err).Msg("notify admins: listing failed")
		return
	}

	ns := make([]Notification, 0, len(admins))
	for _, a := range admins {
		ns = append(ns, Notification{RecipientUserID: a.ID, Message: message})
	}
	if err := d.repo.CreateBatch(ctx, ns); err != nil {
		d.log.Warn().Err(err).Int("recipients", len(ns)).Msg("notify admins failed")
	}
}
