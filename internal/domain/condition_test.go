package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCondition_Variants(t *testing.T) {
	tests := []struct {
		raw  string
		want Condition
	}{
		{`{"default":true}`, AnyCondition{}},
		{`{"type":"any"}`, AnyCondition{}},
		{`{"type":"COMMUNE"}`, CommuneCondition{Mode: CommuneModeAny}},
		{`{"type":"COMMUNE","mode":"group","group":"metropole"}`, CommuneCondition{Mode: CommuneModeGroup, Group: "metropole"}},
		{`{"type":"STATUT_SOCIAL","values":["RSA","AAH"]}`, StatutSocialCondition{Values: []string{"RSA", "AAH"}}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeCondition([]byte(tt.raw)))
		})
	}

	age := DecodeCondition([]byte(`{"type":"AGE","operator":"between","min":18,"max":25}`))
	ac, ok := age.(AgeCondition)
	require.True(t, ok)
	assert.Equal(t, OpBetween, ac.Operator)
	assert.Equal(t, 18, *ac.Min)
	assert.NoError(t, ac.Validate())

	qf := DecodeCondition([]byte(`{"type":"QF","max":620.5}`))
	qc, ok := qf.(QFCondition)
	require.True(t, ok)
	assert.Nil(t, qc.Min)
	assert.InDelta(t, 620.5, *qc.Max, 0.0001)
}

func TestDecodeCondition_MalformedBecomesInvalid(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`[1,2]`,
		`{"operator":"<"}`,
		`{"type":"WEATHER"}`,
		`{"type":"AGE","value":"ten"}`,
	} {
		t.Run(raw, func(t *testing.T) {
			c := DecodeCondition([]byte(raw))
			inv, ok := c.(InvalidCondition)
			require.True(t, ok, "%T", c)
			assert.Error(t, inv.Validate())
			assert.Equal(t, raw, string(inv.Raw))
		})
	}

	inv := DecodeCondition([]byte(`{"type":"AGE","value":"ten"}`)).(InvalidCondition)
	assert.Equal(t, KindAge, inv.Kind())
}

func TestEncodeCondition_AddsDiscriminator(t *testing.T) {
	raw, err := EncodeCondition(FideliteCondition{Comparison: Comparison{Operator: OpGTE, Value: ptr(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FIDELITE","operator":">=","value":5}`, string(raw))

	back := DecodeCondition(raw)
	assert.Equal(t, FideliteCondition{Comparison: Comparison{Operator: OpGTE, Value: ptr(5)}}, back)

	dflt, err := EncodeCondition(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ANY"}`, string(dflt))

	bad := DecodeCondition([]byte(`{"type":"WEATHER","sky":"blue"}`))
	kept, err := EncodeCondition(bad)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"WEATHER","sky":"blue"}`, string(kept))
}

func TestComparison_String(t *testing.T) {
	assert.Equal(t, ">= 5", Comparison{Operator: OpGTE, Value: ptr(5)}.String())
	assert.Equal(t, "between 3 and 7", Comparison{Operator: OpBetween, Min: ptr(3), Max: ptr(7)}.String())
}

func TestDecisionBranch_JSONKeepsMalformedCondition(t *testing.T) {
	doc := `[{"id":"n1","condition_kind":"AGE","order":0,"branches":[
		{"id":"b1","code":"X","label":"broken","condition":{"type":"AGE","operator":"??"},"reduction":{"calc_kind":"fixed","value":"2"}},
		{"id":"b2","code":"D","label":"default"}
	]}]`

	var nodes []DecisionNode
	require.NoError(t, json.Unmarshal([]byte(doc), &nodes))
	require.Len(t, nodes[0].Branches, 2)
	assert.Error(t, nodes[0].Branches[0].Condition.Validate())
	assert.Equal(t, AnyCondition{}, nodes[0].Branches[1].Condition)

	out, err := json.Marshal(nodes)
	require.NoError(t, err)
	var again []DecisionNode
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, "b1", again[0].Branches[0].ID)
	assert.True(t, again[0].Branches[0].Reduction.Value.Equal(nodes[0].Branches[0].Reduction.Value))
}
