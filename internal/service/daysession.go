package service

import (
	"context"
	"fmt"
	"log"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/report"
)

// StartDay opens the business day. When a day is already open it is returned
// unchanged.
func (s *Service) StartDay(ctx context.Context) (domain.DaySession, error) {
	actor, err := s.require(ctx, domain.CapManageDay)
	if err != nil {
		return domain.DaySession{}, err
	}
	day, created, err := s.sessions.StartDaySession(ctx, domain.DaySession{
		StartTime: s.now(),
		StartedBy: actor.Name,
	})
	if err != nil {
		return domain.DaySession{}, err
	}
	if created {
		s.logAudit(ctx, "day_start", "day_session", day.StartTime.Format("2006-01-02"), "")
	}
	return day, nil
}

func (s *Service) GetDaySession(ctx context.Context) (*domain.DaySession, error) {
	return s.sessions.GetDaySession(ctx)
}

// EndDay closes the business day with a Z-report. It refuses while any order
// is active or billed. The caller's token is revoked, which signs them out.
func (s *Service) EndDay(ctx context.Context) (report.ZReport, error) {
	actor, err := s.require(ctx, domain.CapManageDay)
	if err != nil {
		return report.ZReport{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.sessions.GetDaySession(ctx)
	if err != nil {
		return report.ZReport{}, err
	}
	if day == nil {
		return report.ZReport{}, ErrDayNotStarted
	}
	open, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: openStatuses})
	if err != nil {
		return report.ZReport{}, err
	}
	if len(open) > 0 {
		return report.ZReport{}, fmt.Errorf("%w: %d still open", ErrOpenOrders, len(open))
	}

	end := s.now()
	from := day.StartTime
	paid, err := s.repo.ListOrders(ctx, domain.OrderFilter{Statuses: []domain.OrderStatus{domain.StatusPaid}, From: &from, To: &end})
	if err != nil {
		return report.ZReport{}, err
	}
	z := report.BuildZReport(*day, actor.Name, end, paid)

	if err := s.sessions.ClearDaySession(ctx); err != nil {
		return report.ZReport{}, err
	}
	s.revoke(ctx, actor)
	s.logAudit(ctx, "day_end", "day_session", day.StartTime.Format("2006-01-02"), fmt.Sprintf("orders=%d revenue=%s", z.OrderCount, z.TotalRevenue.StringFixed(2)))
	return z, nil
}

// Logout revokes the caller's token and clears the day session, which lives
// only as long as the signed-in session.
func (s *Service) Logout(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.ClearDaySession(ctx); err != nil {
		return err
	}
	s.revoke(ctx, actor)
	return nil
}

func (s *Service) revoke(ctx context.Context, actor domain.Actor) {
	if actor.TokenID == "" {
		return
	}
	if err := s.sessions.RevokeToken(ctx, actor.TokenID, s.tokenTTL); err != nil {
		log.Printf("[session] WARN: failed to revoke token of %s: %v", actor.Username, err)
	}
}

// TokenRevoked reports whether a token was signed out by logout or day end.
func (s *Service) TokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.sessions.IsRevoked(ctx, tokenID)
}
