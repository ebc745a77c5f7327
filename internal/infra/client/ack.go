package client

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/boddenberg/crm-bff-go/internal/domain"
)

// The CRM acknowledges writes with a plain sentence and answers 200 or 201
// even when it refused the write. refusals maps the phrases it uses for a
// refusal onto domain errors. Order matters: the first match wins.
var refusals = []struct {
	phrase string
	err    func(actor domain.Actor, resource, id, msg string) error
}{
	{"user not found", func(_ domain.Actor, _, _, msg string) error {
		return &domain.ErrUnauthenticated{Message: "CRM session has no user: " + msg}
	}},
	{"not authorized", func(actor domain.Actor, resource, _, _ string) error {
		return &domain.ErrUnauthorized{Role: actor.Role, Action: "update this " + resource}
	}},
	{"cannot be in the past", func(_ domain.Actor, _, _, msg string) error {
		return &domain.ErrValidation{Field: "dueDate", Message: msg}
	}},
	{"related lead not found", func(_ domain.Actor, _, _, msg string) error {
		return &domain.ErrValidation{Field: "relatedLeadId", Message: msg}
	}},
	{"no leads found", func(_ domain.Actor, _, _, msg string) error {
		return &domain.ErrValidation{Field: "relatedLeadId", Message: msg}
	}},
	{"not found", func(_ domain.Actor, resource, id, _ string) error {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}},
}

// checkAck returns the refusal carried by a 2xx acknowledgement, or nil.
// Success messages may echo user input such as a lead name, so they are
// never searched for refusal phrases.
func checkAck(actor domain.Actor, resource, id, msg string) error {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "successfully") {
		return nil
	}
	for _, r := range refusals {
		if strings.Contains(lower, r.phrase) {
			return r.err(actor, resource, id, strings.TrimSpace(msg))
		}
	}
	return nil
}

// rejection turns a 4xx message into a validation error. Lead creation
// answers with a JSON object of field messages; its first field is reported.
func rejection(resource, msg string) error {
	var fields map[string]string
	if err := json.Unmarshal([]byte(msg), &fields); err == nil && len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		return &domain.ErrValidation{Field: names[0], Message: fields[names[0]]}
	}
	return &domain.ErrValidation{Field: resource, Message: msg}
}
