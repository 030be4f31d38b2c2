package server

import (
	"net/http"
	"strconv"
	"testing"

	"guidance-desk/internal/db"
)

func TestUserManagement(t *testing.T) {
	f := newFixture(t)
	admin := f.login(t, "admin")

	payload := map[string]any{
		"username": "jdelacruz",
		"email":    "J.DelaCruz@school.test",
		"fullName": "Juan Dela Cruz",
		"password": "long-enough",
		"role":     "adviser",
	}
	resp := doRequest(t, f.ts, http.MethodPost, "/api/users", admin, payload)
	expectStatus(t, resp, http.StatusCreated)
	created := dataObject(t, decodeBody(t, resp))
	if created["email"] != "j.delacruz@school.test" {
		t.Fatalf("expected lowercased email, got %#v", created["email"])
	}
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/users", admin, payload), http.StatusConflict)

	payload["username"] = "shortpw"
	payload["email"] = "shortpw@school.test"
	payload["password"] = "short"
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/users", admin, payload), http.StatusBadRequest)

	id := strconv.Itoa(int(created["id"].(float64)))
	newToken := func() string {
		resp := doRequest(t, f.ts, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "jdelacruz", "password": "long-enough"})
		expectStatus(t, resp, http.StatusOK)
		return assertString(t, decodeBody(t, resp)["token"])
	}
	userToken := newToken()
	expectStatus(t, doRequest(t, f.ts, http.MethodPut, "/api/users/"+id, admin, map[string]any{"isActive": false}), http.StatusOK)
	expectStatus(t, doRequest(t, f.ts, http.MethodGet, "/api/auth/me", userToken, nil), http.StatusUnauthorized)
	resp = doRequest(t, f.ts, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "jdelacruz", "password": "long-enough"})
	expectStatus(t, resp, http.StatusForbidden)

	body := decodeBody(t, doRequest(t, f.ts, http.MethodGet, "/api/advisers", admin, nil))
	if got := len(dataList(t, body)); got != 1 {
		t.Fatalf("expected only the active seeded adviser, got %d", got)
	}

	selfID := strconv.Itoa(int(f.users["admin"].ID))
	expectStatus(t, doRequest(t, f.ts, http.MethodDelete, "/api/users/"+selfID, admin, nil), http.StatusBadRequest)
	expectStatus(t, doRequest(t, f.ts, http.MethodPut, "/api/users/"+selfID, admin, map[string]any{"role": "counselor"}), http.StatusBadRequest)
	expectStatus(t, doRequest(t, f.ts, http.MethodDelete, "/api/users/"+id, admin, nil), http.StatusOK)
	expectStatus(t, doRequest(t, f.ts, http.MethodGet, "/api/users/"+id, admin, nil), http.StatusNotFound)
}

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t)
	counselor := f.login(t, "counselor")
	adviser := f.login(t, "adviser")

	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/categories", adviser, map[string]any{"name": "Academic"}), http.StatusForbidden)
	resp := doRequest(t, f.ts, http.MethodPost, "/api/categories", counselor, map[string]any{"name": "Academic", "description": "Grades and attendance"})
	expectStatus(t, resp, http.StatusCreated)
	category := dataObject(t, decodeBody(t, resp))
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/categories", counselor, map[string]any{"name": "Academic"}), http.StatusConflict)
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/categories", counselor, map[string]any{"name": "<script>"}), http.StatusBadRequest)

	id := uint(category["id"].(float64))
	referral := createReferral(t, f, adviser, map[string]any{"studentName": "Ana", "level": "SHS", "grade": "11", "reason": "Failing", "severity": "Low", "categoryId": id})

	body := decodeBody(t, doRequest(t, f.ts, http.MethodGet, "/api/categories", adviser, nil))
	if got := len(dataList(t, body)); got != 1 {
		t.Fatalf("expected 1 category, got %d", got)
	}

	path := "/api/categories/" + strconv.Itoa(int(id))
	expectStatus(t, doRequest(t, f.ts, http.MethodPut, path, counselor, map[string]any{"name": "Academics"}), http.StatusOK)
	expectStatus(t, doRequest(t, f.ts, http.MethodDelete, path, counselor, nil), http.StatusOK)

	var stored db.Referral
	if err := f.conn.Where("referral_id = ?", referral["referralId"]).Take(&stored).Error; err != nil {
		t.Fatalf("load referral: %v", err)
	}
	if stored.CategoryID != nil {
		t.Fatalf("expected referral category cleared, got %v", *stored.CategoryID)
	}
}

func TestStudentRoster(t *testing.T) {
	f := newFixture(t)
	counselor := f.login(t, "counselor")
	adviserToken := f.login(t, "adviser")
	adviserID := f.users["adviser"].ID

	payload := map[string]any{
		"studentId": "2026-0100",
		"firstName": "Lia",
		"lastName":  "Cruz",
		"level":     "JHS",
		"grade":     "8",
		"adviserId": adviserID,
	}
	resp := doRequest(t, f.ts, http.MethodPost, "/api/students", counselor, payload)
	expectStatus(t, resp, http.StatusCreated)
	student := dataObject(t, decodeBody(t, resp))
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/students", counselor, payload), http.StatusConflict)

	payload["studentId"] = "2026-0101"
	payload["adviserId"] = f.users["counselor"].ID
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/students", counselor, payload), http.StatusBadRequest)

	payload["adviserId"] = nil
	payload["firstName"] = "Marco"
	expectStatus(t, doRequest(t, f.ts, http.MethodPost, "/api/students", counselor, payload), http.StatusCreated)

	body := decodeBody(t, doRequest(t, f.ts, http.MethodGet, "/api/students", adviserToken, nil))
	if got := len(dataList(t, body)); got != 1 {
		t.Fatalf("expected adviser to see 1 advisee, got %d", got)
	}
	body = decodeBody(t, doRequest(t, f.ts, http.MethodGet, "/api/students?q=cruz", counselor, nil))
	if got := len(dataList(t, body)); got != 2 {
		t.Fatalf("expected 2 matches, got %d", got)
	}

	path := "/api/students/" + strconv.Itoa(int(student["id"].(float64)))
	expectStatus(t, doRequest(t, f.ts, http.MethodDelete, path, counselor, nil), http.StatusForbidden)
	expectStatus(t, doRequest(t, f.ts, http.MethodDelete, path, f.login(t, "admin"), nil), http.StatusOK)
}
