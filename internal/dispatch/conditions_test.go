package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionsMatch(t *testing.T) {
	data := map[string]interface{}{
		"dealStage":  "approved",
		"amount":     2500,
		"riskScore":  0.75,
		"isPriority": true,
		"merchant":   map[string]interface{}{"state": "TX", "mcc": float64(5812)},
		"notes":      nil,
	}

	tests := []struct {
		name  string
		conds string
		want  bool
	}{
		{name: "no conditions", conds: ``, want: true},
		{name: "json null", conds: `null`, want: true},
		{name: "empty object", conds: `{}`, want: true},
		{name: "malformed json is permissive", conds: `{"dealStage":`, want: true},
		{name: "trailing data is permissive", conds: `{"dealStage":"declined"} {"x":1}`, want: true},
		{name: "trailing brace is permissive", conds: `{"dealStage":"declined"}}`, want: true},
		{name: "array is permissive", conds: `["approved"]`, want: true},
		{name: "string is permissive", conds: `"approved"`, want: true},
		{name: "string equality", conds: `{"dealStage":"approved"}`, want: true},
		{name: "string mismatch", conds: `{"dealStage":"declined"}`, want: false},
		{name: "string equality is case sensitive", conds: `{"dealStage":"Approved"}`, want: false},
		{name: "int context equals json number", conds: `{"amount":2500}`, want: true},
		{name: "numeric equality ignores representation", conds: `{"amount":2500.0}`, want: true},
		{name: "float equality", conds: `{"riskScore":0.75}`, want: true},
		{name: "number never equals string", conds: `{"amount":"2500"}`, want: false},
		{name: "bool equality", conds: `{"isPriority":true}`, want: true},
		{name: "bool mismatch", conds: `{"isPriority":false}`, want: false},
		{name: "list membership", conds: `{"dealStage":["funded","approved"]}`, want: true},
		{name: "list non-member", conds: `{"dealStage":["funded","declined"]}`, want: false},
		{name: "numeric list membership", conds: `{"amount":[1000,2500]}`, want: true},
		{name: "empty list matches nothing", conds: `{"dealStage":[]}`, want: false},
		{name: "implicit and all match", conds: `{"dealStage":"approved","amount":2500}`, want: true},
		{name: "implicit and one fails", conds: `{"dealStage":"approved","amount":10}`, want: false},
		{name: "missing key fails", conds: `{"channel":"web"}`, want: false},
		{name: "dotted key reaches nested map", conds: `{"merchant.state":["TX","OK"]}`, want: true},
		{name: "dotted numeric", conds: `{"merchant.mcc":5812}`, want: true},
		{name: "null literal matches nil value", conds: `{"notes":null}`, want: true},
		{name: "null literal does not match value", conds: `{"dealStage":null}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConditionsMatch(json.RawMessage(tt.conds), data))
		})
	}
}

func TestConditionsMatch_NilContext(t *testing.T) {
	assert.True(t, ConditionsMatch(nil, nil))
	assert.False(t, ConditionsMatch(json.RawMessage(`{"a":1}`), nil))
}
