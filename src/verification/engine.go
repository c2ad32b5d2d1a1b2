package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/roles"
)

// Request is an incoming verification with an already resolved profile.
type Request struct {
	Requester Member
	ChannelID string
	Profile   game.Profile
}

// EngineDeps holds the engine's collaborators. Events and Clock are optional.
type EngineDeps struct {
	Registry  *Registry
	Guard     *Guard
	Chat      ChatClient
	Users     UserStore
	Settings  Settings
	Countries CountryLookup
	Events    EventSink
	Clock     func() time.Time
}

// Engine drives records from creation to approval or denial.
type Engine struct {
	registry  *Registry
	guard     *Guard
	chat      ChatClient
	users     UserStore
	settings  Settings
	countries CountryLookup
	events    EventSink
	now       func() time.Time
}

// NewEngine wires an engine from its dependencies.
func NewEngine(deps EngineDeps) *Engine {
	e := &Engine{
		registry:  deps.Registry,
		guard:     deps.Guard,
		chat:      deps.Chat,
		users:     deps.Users,
		settings:  deps.Settings,
		countries: deps.Countries,
		events:    deps.Events,
		now:       deps.Clock,
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.guard == nil {
		e.guard = NewGuard(deps.Users, e.registry)
	}
	if e.countries == nil {
		e.countries = roles.Countries{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Registry exposes the pending registry for read-only views.
func (e *Engine) Registry() *Registry { return e.registry }

// Create registers a new request and posts either the admin prompt or the
// country prompt.
func (e *Engine) Create(ctx context.Context, req Request) (Record, error) {
	verificationChannel, adminChannel, err := e.settings.Channels()
	if err != nil {
		return Record{}, err
	}
	if req.ChannelID != verificationChannel {
		return Record{}, ErrWrongChannel
	}

	profile := req.Profile.Clone()
	if profile.Country != "" {
		code, ok := e.countries.Code(profile.Country)
		if !ok {
			log.Printf("engine: dropping unknown country %q from %s profile %s", profile.Country, profile.Game, profile.Username)
		}
		profile.Country = code
	}

	if err := e.guard.Check(ctx, profile.Game, profile.Username, req.Requester.ID); err != nil {
		e.emit(ctx, Event{Kind: EventRejected, RequesterID: req.Requester.ID, Game: profile.Game, Username: profile.Username, Reason: err.Error()})
		return Record{}, err
	}

	id := e.registry.IssueID()
	rec := &Record{
		Requester: req.Requester,
		Profile:   profile,
		ChannelID: req.ChannelID,
		State:     StateCreated,
		CreatedAt: e.now(),
	}
	if err := e.registry.Insert(id, rec); err != nil {
		return Record{}, err
	}
	if snap, err := e.registry.Get(id); err == nil {
		e.emit(ctx, e.eventFrom(EventCreated, snap, req.Requester.ID, nil))
	}

	var out Record
	err = e.registry.Do(ctx, id, func(rec *Record) (Disposition, error) {
		if rec.Profile.HasCountry() {
			if err := e.postApprovalPrompt(ctx, rec, adminChannel); err != nil {
				rec.State = StateFailed
				out = rec.Snapshot()
				return Remove, err
			}
		} else {
			ref, err := e.chat.SendMessage(ctx, rec.ChannelID, countryPrompt(rec))
			if err != nil {
				rec.State = StateFailed
				out = rec.Snapshot()
				return Remove, stepErr(StepPostCountryPrompt, err)
			}
			rec.CountryPromptRef = &ref
			rec.State = StateAwaitingCountry
		}
		out = rec.Snapshot()
		return Keep, nil
	})
	if err != nil {
		e.emit(ctx, e.eventFrom(EventFailed, out, req.Requester.ID, err))
		return out, err
	}

	if out.State == StateAwaitingCountry {
		e.emit(ctx, e.eventFrom(EventAwaitingCountry, out, req.Requester.ID, nil))
	} else {
		e.emit(ctx, e.eventFrom(EventAwaitingDecision, out, req.Requester.ID, nil))
	}
	return out, nil
}

// AuthorizeCountrySelection checks, without changing anything, that actorID may
// choose the country for record id.
func (e *Engine) AuthorizeCountrySelection(ctx context.Context, id uint64, actorID string) error {
	rec, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if !e.chat.IsRequester(actorID, &rec) {
		return ErrUnauthorized
	}
	if rec.State != StateAwaitingCountry {
		return notReady(rec.State)
	}
	return nil
}

// SelectCountry records the requester's chosen country and posts the admin prompt.
func (e *Engine) SelectCountry(ctx context.Context, id uint64, actorID, country string) (Record, error) {
	_, adminChannel, err := e.settings.Channels()
	if err != nil {
		return Record{}, err
	}

	var out Record
	err = e.registry.Do(ctx, id, func(rec *Record) (Disposition, error) {
		if !e.chat.IsRequester(actorID, rec) {
			return Keep, ErrUnauthorized
		}
		if rec.State != StateAwaitingCountry {
			return Keep, notReady(rec.State)
		}
		code, ok := e.countries.Code(country)
		if !ok {
			return Keep, fmt.Errorf("%w: %s", ErrUnknownCountry, country)
		}

		rec.Profile.Country = code
		if err := e.postApprovalPrompt(ctx, rec, adminChannel); err != nil {
			rec.Profile.Country = ""
			return Keep, err
		}

		if rec.CountryPromptRef != nil {
			if err := e.chat.DeleteMessage(ctx, *rec.CountryPromptRef); err != nil {
				log.Printf("engine: request #%d: failed to delete country prompt: %v", rec.ID, err)
			}
			rec.CountryPromptRef = nil
		}
		out = rec.Snapshot()
		return Keep, nil
	})
	if err != nil {
		return Record{}, err
	}

	e.emit(ctx, e.eventFrom(EventAwaitingDecision, out, actorID, nil))
	return out, nil
}

// Approve grants the roles, renames the requester, persists the user and
// removes the record. On failure the record stays so the action can be retried.
func (e *Engine) Approve(ctx context.Context, id uint64, actorID string) (Record, error) {
	var out Record
	err := e.registry.Do(ctx, id, func(rec *Record) (Disposition, error) {
		if rec.State != StateAwaitingDecision {
			return Keep, notReady(rec.State)
		}
		if err := e.apply(ctx, rec); err != nil {
			return Keep, err
		}
		rec.State = StateApproved
		out = rec.Snapshot()
		return Remove, nil
	})
	if err != nil {
		if !isLookupErr(err) {
			if rec, getErr := e.registry.Get(id); getErr == nil {
				e.emit(ctx, e.eventFrom(EventFailed, rec, actorID, err))
			}
		}
		return Record{}, err
	}

	e.emit(ctx, e.eventFrom(EventApproved, out, actorID, nil))
	return out, nil
}

// Deny marks the status message as denied and removes the record.
func (e *Engine) Deny(ctx context.Context, id uint64, actorID string) (Record, error) {
	var out Record
	err := e.registry.Do(ctx, id, func(rec *Record) (Disposition, error) {
		if rec.State != StateAwaitingDecision {
			return Keep, notReady(rec.State)
		}
		if rec.StatusRef != nil {
			if err := e.chat.EditMessage(ctx, *rec.StatusRef, statusMessage(rec, StatusDenied)); err != nil {
				return Keep, stepErr(StepUpdateStatus, err)
			}
		}
		if rec.PromptRef != nil {
			if err := e.chat.DeleteMessage(ctx, *rec.PromptRef); err != nil {
				return Keep, stepErr(StepDeletePrompt, err)
			}
			rec.PromptRef = nil
		}
		rec.State = StateDenied
		out = rec.Snapshot()
		return Remove, nil
	})
	if err != nil {
		return Record{}, err
	}

	e.emit(ctx, e.eventFrom(EventDenied, out, actorID, nil))
	return out, nil
}

func (e *Engine) postApprovalPrompt(ctx context.Context, rec *Record, adminChannel string) error {
	countryName, _ := e.countries.Name(rec.Profile.Country)

	prompt, err := e.chat.SendMessage(ctx, adminChannel, adminPrompt(rec, countryName))
	if err != nil {
		return stepErr(StepPostPrompt, err)
	}

	if rec.StatusRef == nil {
		status, err := e.chat.SendMessage(ctx, rec.ChannelID, statusMessage(rec, StatusPending))
		if err != nil {
			if delErr := e.chat.DeleteMessage(ctx, prompt); delErr != nil {
				log.Printf("engine: request #%d: failed to clean up admin prompt: %v", rec.ID, delErr)
			}
			return stepErr(StepPostStatus, err)
		}
		rec.StatusRef = &status
	}

	rec.PromptRef = &prompt
	rec.State = StateAwaitingDecision
	return nil
}

func (e *Engine) apply(ctx context.Context, rec *Record) error {
	if !rec.Completed(StepSaveUser) {
		if err := e.guard.CheckDurable(ctx, rec.Profile.Game, rec.Profile.Username, rec.Requester.ID); err != nil {
			var claimed *AlreadyClaimedError
			var verified *RequesterVerifiedError
			if errors.As(err, &claimed) || errors.As(err, &verified) {
				return err
			}
			return stepErr(StepCheckDuplicates, err)
		}
	}

	countryName, ok := e.countries.Name(rec.Profile.Country)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCountry, rec.Profile.Country)
	}
	roleName, err := roles.RoleNameFor(countryName, e.settings.EmojiOverrides())
	if err != nil {
		return err
	}

	countryRole, err := e.chat.EnsureRole(ctx, rec.Requester.GuildID, roleName)
	if err != nil {
		return stepErr(StepEnsureRole, err)
	}
	if err := e.chat.GrantRole(ctx, rec.Requester, countryRole); err != nil {
		return stepErr(StepGrantRole, err)
	}

	memberRole, err := e.chat.EnsureRole(ctx, rec.Requester.GuildID, e.settings.MemberRoleName())
	if err != nil {
		return stepErr(StepEnsureMemberRole, err)
	}
	if err := e.chat.GrantRole(ctx, rec.Requester, memberRole); err != nil {
		return stepErr(StepGrantMemberRole, err)
	}

	if err := e.chat.RenameMember(ctx, rec.Requester, rec.Profile.Username); err != nil {
		return stepErr(StepRename, err)
	}

	if !rec.Completed(StepSaveUser) {
		if err := e.users.Insert(ctx, VerifiedUser{
			RequesterID: rec.Requester.ID,
			Game:        rec.Profile.Game,
			ExternalID:  rec.Profile.ID,
			Username:    rec.Profile.Username,
			Country:     rec.Profile.Country,
		}); err != nil {
			return stepErr(StepSaveUser, err)
		}
		rec.markCompleted(StepSaveUser)
	}

	if rec.StatusRef != nil {
		if err := e.chat.EditMessage(ctx, *rec.StatusRef, statusMessage(rec, StatusAccepted)); err != nil {
			return stepErr(StepUpdateStatus, err)
		}
	}

	if rec.PromptRef != nil {
		if err := e.chat.DeleteMessage(ctx, *rec.PromptRef); err != nil {
			return stepErr(StepDeletePrompt, err)
		}
		rec.PromptRef = nil
	}
	return nil
}

func isLookupErr(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyResolved) ||
		errors.Is(err, ErrNotReady) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) eventFrom(kind EventKind, rec Record, actorID string, cause error) Event {
	ev := Event{
		Kind:        kind,
		ID:          rec.ID,
		RequesterID: rec.Requester.ID,
		ActorID:     actorID,
		Game:        rec.Profile.Game,
		Username:    rec.Profile.Username,
		Country:     rec.Profile.Country,
		At:          e.now(),
	}
	if cause != nil {
		ev.Reason = cause.Error()
	}
	return ev
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	if e.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		log.Printf("engine: publish %s event for request #%d: %v", ev.Kind, ev.ID, err)
	}
}
