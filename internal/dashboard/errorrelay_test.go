package dashboard

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

// orderLog records collaborator calls in order.
type orderLog struct {
	calls []string
}

// HideSpinner handles HideSpinner.
func (o *orderLog) HideSpinner() { o.calls = append(o.calls, "hide") }

// SetCurrentError handles SetCurrentError.
func (o *orderLog) SetCurrentError(error) { o.calls = append(o.calls, "set") }

// NavigateTo handles NavigateTo.
func (o *orderLog) NavigateTo(route []string) {
	o.calls = append(o.calls, "nav:"+strings.Join(route, "/"))
}

func TestErrorRelayOrder(t *testing.T) {
	rec := &orderLog{}
	NewErrorRelay(rec, rec, nil).Relay(errors.New("boom"), rec)
	want := []string{"hide", "set", "nav:error"}
	if !slices.Equal(rec.calls, want) {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
}

func TestErrorRelayNilErrorOnlyHidesSpinner(t *testing.T) {
	rec := &orderLog{}
	NewErrorRelay(rec, rec, nil).Relay(nil, rec)
	if !slices.Equal(rec.calls, []string{"hide"}) {
		t.Fatalf("calls = %v, want [hide]", rec.calls)
	}
}

func TestRouterNotifiesOnChange(t *testing.T) {
	router := NewRouter("dashboard")
	var seen []string
	router.OnChange(func(route []string) { seen = route })
	router.NavigateTo([]string{ErrorRoute})
	if !router.At(ErrorRoute) || !slices.Equal(seen, []string{ErrorRoute}) {
		t.Fatalf("router current = %v, seen = %v", router.Current(), seen)
	}
}
