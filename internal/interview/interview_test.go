package interview_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/intervox/internal/interview"
)

func TestValidateCategories(t *testing.T) {
	t.Parallel()

	got, err := interview.ValidateCategories([]string{" DBMS", "dsa", "dbms", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"dbms", "dsa"}; !slices.Equal(got, want) {
		t.Errorf("categories = %v, want %v", got, want)
	}

	_, err = interview.ValidateCategories([]string{"dsa", "cooking", "juggling"})
	if !errors.Is(err, interview.ErrInvalidCategory) {
		t.Fatalf("err = %v, want ErrInvalidCategory", err)
	}
	var ce *interview.CategoryError
	if !errors.As(err, &ce) || !slices.Equal(ce.Invalid, []string{"cooking", "juggling"}) {
		t.Errorf("CategoryError = %+v", ce)
	}
}

func TestNormaliseRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "general", false},
		{"Sales", "sales", false},
		{"customer_service", "customer_service", false},
		{"astronaut", "general", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := interview.NormaliseRole(tt.in)
			if got != tt.want {
				t.Errorf("role = %q, want %q", got, tt.want)
			}
			if tt.wantErr != errors.Is(err, interview.ErrUnknownRole) {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfile_Normalise(t *testing.T) {
	t.Parallel()

	p, err := interview.Profile{Type: interview.TypeRoleBased, Role: "design"}.Normalise()
	if err != nil {
		t.Fatalf("Normalise: %v", err)
	}
	if p.RoleTitle != "UX/UI Designer" || p.Company != interview.DefaultCompany {
		t.Errorf("defaults not applied: %+v", p)
	}

	p, err = interview.Profile{}.Normalise()
	if err != nil || p.Type != interview.TypeTechnical {
		t.Errorf("empty profile = %+v, %v", p, err)
	}

	_, err = interview.Profile{Type: "quiz"}.Normalise()
	if err == nil {
		t.Error("expected error for unknown type")
	}

	_, err = interview.Profile{Type: interview.TypeTechnical, Categories: []string{"poetry"}}.Normalise()
	if !errors.Is(err, interview.ErrInvalidCategory) {
		t.Errorf("err = %v, want ErrInvalidCategory", err)
	}
}

func TestProfile_Duration(t *testing.T) {
	t.Parallel()
	if got := (interview.Profile{}).Duration(10 * time.Minute); got != 10*time.Minute {
		t.Errorf("default duration = %v", got)
	}
	if got := (interview.Profile{DurationMinutes: 3}).Duration(10 * time.Minute); got != 3*time.Minute {
		t.Errorf("explicit duration = %v", got)
	}
}

func TestOpeningQuestion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		profile  interview.Profile
		contains []string
	}{
		{
			name:     "technical without categories",
			profile:  interview.Profile{Type: interview.TypeTechnical},
			contains: []string{"technical interviewer", "programming background"},
		},
		{
			name:     "technical with categories",
			profile:  interview.Profile{Type: interview.TypeTechnical, Categories: []string{"dbms", "dsa"}},
			contains: []string{"focusing on DBMS, DSA."},
		},
		{
			name:     "marketing names the company",
			profile:  interview.Profile{Type: interview.TypeRoleBased, Role: "marketing", RoleTitle: "Growth Lead", Company: "Acme"},
			contains: []string{"Growth Lead position at Acme", "campaigns"},
		},
		{
			name:     "unknown role uses general opening",
			profile:  interview.Profile{Type: interview.TypeRoleBased, Role: "pilot", RoleTitle: "Pilot"},
			contains: []string{"Pilot position", "what interests you about this role"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := interview.OpeningQuestion(tt.profile)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("opening %q does not contain %q", got, s)
				}
			}
		})
	}
}

func TestNudges(t *testing.T) {
	t.Parallel()

	tech := interview.Nudges(interview.Profile{Type: interview.TypeTechnical})
	if len(tech) != 3 || tech[0] != "I'm still waiting for your response. Please take your time." {
		t.Errorf("technical nudges = %v", tech)
	}
	sales := interview.Nudges(interview.Profile{Type: interview.TypeRoleBased, Role: "sales"})
	if !strings.Contains(sales[0], "sales experience") {
		t.Errorf("sales nudges = %v", sales)
	}
	// Roles without their own list use the general list.
	hr := interview.Nudges(interview.Profile{Type: interview.TypeRoleBased, Role: "hr"})
	if hr[0] != "I'm still waiting for your response. Please take your time to think." {
		t.Errorf("hr nudges = %v", hr)
	}

	// The returned slice is a copy.
	tech[0] = "changed"
	if interview.Nudges(interview.Profile{})[0] == "changed" {
		t.Error("Nudges exposes internal state")
	}
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	tech := interview.SystemPrompt(interview.Profile{Type: interview.TypeTechnical, Categories: []string{"oops"}})
	if !strings.Contains(tech, "- Object-Oriented Programming") || strings.Contains(tech, "- Database") {
		t.Errorf("technical prompt focus wrong:\n%s", tech)
	}
	all := interview.SystemPrompt(interview.Profile{Type: interview.TypeTechnical})
	if strings.Count(all, "\n- ") != len(interview.Categories()) {
		t.Errorf("empty category list should cover every category:\n%s", all)
	}

	role := interview.SystemPrompt(interview.Profile{
		Type: interview.TypeRoleBased, Role: "sales", RoleTitle: "Account Exec", Company: "Acme",
		Skills: []string{"CRM", "negotiation"}, FocusAreas: []string{"closing"},
	})
	for _, want := range []string{"Account Exec position at Acme", "CRM, negotiation", "closing", "this sales role"} {
		if !strings.Contains(role, want) {
			t.Errorf("role prompt missing %q:\n%s", want, role)
		}
	}

	for _, p := range []string{tech, role} {
		if !strings.HasSuffix(p, `"next_question": "your next question"}`) {
			t.Errorf("prompt does not end with the JSON instruction:\n%s", p)
		}
	}
}

func TestFinalPrompts(t *testing.T) {
	t.Parallel()

	tech := interview.Profile{Type: interview.TypeTechnical}
	got := interview.FinalUserPrompt(tech, 90*time.Second, 2, "[]")
	for _, want := range []string{"Duration: 1.5 minutes", "Total exchanges: 2", "general technical topics", "Recommendation"} {
		if !strings.Contains(got, want) {
			t.Errorf("technical final prompt missing %q", want)
		}
	}

	role := interview.Profile{Type: interview.TypeRoleBased, Role: "hr", RoleTitle: "HR Coordinator"}
	if sys := interview.FinalSystemPrompt(role); !strings.Contains(sys, "HR Coordinator position") {
		t.Errorf("final system prompt = %q", sys)
	}
	got = interview.FinalUserPrompt(role, time.Minute, 0, "[]")
	if !strings.Contains(got, "Skills Focus: general skills") || !strings.Contains(got, "relevant to hr") {
		t.Errorf("role final prompt:\n%s", got)
	}
}

func TestRolesTable(t *testing.T) {
	t.Parallel()
	roles := interview.Roles()
	if len(roles) != 11 {
		t.Fatalf("got %d roles, want 11", len(roles))
	}
	for _, r := range roles {
		if r.DefaultTitle == "" || r.Description == "" {
			t.Errorf("role %q has empty fields", r.Name)
		}
	}
	if r, ok := interview.LookupRole("finance"); !ok || r.DefaultTitle != "Financial Analyst" {
		t.Errorf("LookupRole(finance) = %+v, %v", r, ok)
	}
}
