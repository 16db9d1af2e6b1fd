package repair

import (
	"context"
	"net/url"
	"strings"

	domainrepair "repairtrack/internal/domain/repair"
)

// AddNote appends a free-form note. Notes stay legal on completed and
// cancelled jobs for record-keeping.
func (s *Service) AddNote(ctx context.Context, input AddNoteInput) (Result, error) {
	actor, err := requireField(input.ActorID, "actor")
	if err != nil {
		return Result{}, err
	}
	text, err := requireField(input.Text, "note text")
	if err != nil {
		return Result{}, err
	}

	return s.submit(ctx, input.JobID, func(domainrepair.Aggregate) ([]eventDraft, error) {
		return []eventDraft{{
			Kind:  domainrepair.EventNoteAdded,
			Actor: actor,
			Payload: domainrepair.NotePayload{
				Text:      text,
				IsPrivate: input.IsPrivate,
			},
		}}, nil
	})
}

// AddPhoto appends a photo reference; like notes, photos remain legal after
// a terminal status.
func (s *Service) AddPhoto(ctx context.Context, input AddPhotoInput) (Result, error) {
	actor, err := requireField(input.ActorID, "actor")
	if err != nil {
		return Result{}, err
	}
	rawURL, err := requireField(input.URL, "photo url")
	if err != nil {
		return Result{}, err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{}, invalidCommandf("photo url %q is not absolute", rawURL)
	}

	category := strings.TrimSpace(input.Category)

	return s.submit(ctx, input.JobID, func(domainrepair.Aggregate) ([]eventDraft, error) {
		return []eventDraft{{
			Kind:  domainrepair.EventPhotoAdded,
			Actor: actor,
			Payload: domainrepair.PhotoPayload{
				URL:      rawURL,
				Category: category,
			},
		}}, nil
	})
}
