package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/nidhamu/core/rule"
)

func Test_ruleApi(t *testing.T) {
	env := setup(t)

	admin := env.createUser(t, "admin", "admin@test.cd", true)
	monitor := env.createUser(t, "mon", "mon@test.cd", false)
	adminToken := getToken(t, admin)
	monitorToken := getToken(t, monitor)

	// create is admin only
	body := marchallObj(t, rule.NewRule{Content: "Late arrival", Points: 5})
	req, rr := newAuthRequest(http.MethodPost, "/v1/rules", monitorToken, body)
	env.app.ServeHTTP(rr, req)
	tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
	checkCodeAndData(t, tt, rr)

	req, rr = newAuthRequest(http.MethodPost, "/v1/rules", adminToken, body)
	env.app.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /v1/rules code = %v; body = %s", rr.Code, rr.Body.String())
	}
	var rl rule.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &rl); err != nil {
		t.Fatalf("unmarshalling rule: %v", err)
	}
	if rl.Code != "RL-001" {
		t.Errorf("rule code = %s, want RL-001", rl.Code)
	}

	// zero points rejected
	req, rr = newAuthRequest(http.MethodPost, "/v1/rules", adminToken, []byte(`{"content":"x","points":0}`))
	env.app.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /v1/rules (0 points) code = %v, want %v", rr.Code, http.StatusBadRequest)
	}

	// any authed user can list
	req, rr = newAuthRequest(http.MethodGet, "/v1/rules", monitorToken)
	env.app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /v1/rules code = %v; body = %s", rr.Code, rr.Body.String())
	}
	var rules []rule.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &rules); err != nil {
		t.Fatalf("unmarshalling rules: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("listed %d rules, want 1", len(rules))
	}

	// update flips the rule to a bonus
	req, rr = newAuthRequest(http.MethodPut, "/v1/rules/"+rl.ID, adminToken, []byte(`{"is_bonus":true}`))
	env.app.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT /v1/rules/:id code = %v; body = %s", rr.Code, rr.Body.String())
	}
	var updated rule.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling rule: %v", err)
	}
	if !updated.IsBonus {
		t.Error("rule should be a bonus after update")
	}
	if updated.Delta() != 5 {
		t.Errorf("rule delta = %d, want 5", updated.Delta())
	}

	// delete
	req, rr = newAuthRequest(http.MethodDelete, "/v1/rules/"+rl.ID, adminToken)
	env.app.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE /v1/rules/:id code = %v; body = %s", rr.Code, rr.Body.String())
	}
	req, rr = newAuthRequest(http.MethodGet, "/v1/rules/"+rl.ID, adminToken)
	env.app.ServeHTTP(rr, req)
	tt = httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "rule not found"})}
	checkCodeAndData(t, tt, rr)
}
