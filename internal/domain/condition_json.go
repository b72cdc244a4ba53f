package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeCondition turns a stored descriptor into a Condition. It never
// fails: descriptors that cannot be decoded come back as InvalidCondition so
// a single bad branch cannot break the evaluation of a whole tree.
func DecodeCondition(raw []byte) Condition {
	if !gjson.ValidBytes(raw) {
		return InvalidCondition{Raw: raw, Err: fmt.Errorf("descriptor is not valid JSON")}
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return InvalidCondition{Raw: raw, Err: fmt.Errorf("descriptor must be an object")}
	}
	if parsed.Get("default").Bool() {
		return AnyCondition{}
	}

	kind := ConditionKind(strings.ToUpper(strings.TrimSpace(parsed.Get("type").String())))
	var (
		cond Condition
		err  error
	)
	switch kind {
	case KindAny:
		return AnyCondition{}
	case KindCommune:
		var c CommuneCondition
		err = json.Unmarshal(raw, &c)
		if c.Mode == "" {
			c.Mode = CommuneModeAny
		}
		cond = c
	case KindQF:
		var c QFCondition
		err = json.Unmarshal(raw, &c)
		cond = c
	case KindAge:
		var c AgeCondition
		err = json.Unmarshal(raw, &c)
		cond = c
	case KindFidelite:
		var c FideliteCondition
		err = json.Unmarshal(raw, &c)
		cond = c
	case KindMultiInscriptions:
		var c MultiInscriptionsCondition
		err = json.Unmarshal(raw, &c)
		cond = c
	case KindStatutSocial:
		var c StatutSocialCondition
		err = json.Unmarshal(raw, &c)
		cond = c
	case "":
		return InvalidCondition{Raw: raw, Err: fmt.Errorf("missing condition type")}
	default:
		return InvalidCondition{DeclaredKind: kind, Raw: raw, Err: fmt.Errorf("unknown condition type %q", kind)}
	}
	if err != nil {
		return InvalidCondition{DeclaredKind: kind, Raw: raw, Err: err}
	}
	return cond
}

// EncodeCondition renders a Condition as a JSON descriptor with its "type"
// discriminator. Invalid conditions are written back verbatim.
func EncodeCondition(c Condition) (json.RawMessage, error) {
	if c == nil {
		return json.RawMessage(`{"type":"ANY"}`), nil
	}
	if inv, ok := c.(InvalidCondition); ok {
		return inv.Raw, nil
	}
	if _, ok := c.(AnyCondition); ok {
		return json.RawMessage(`{"type":"ANY"}`), nil
	}

	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding %s condition: %w", c.Kind(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encoding %s condition: %w", c.Kind(), err)
	}
	kind, _ := json.Marshal(string(c.Kind()))
	fields["type"] = kind
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding %s condition: %w", c.Kind(), err)
	}
	return out, nil
}
