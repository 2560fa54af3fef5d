package engine

import (
	"testing"

	"github.com/google/uuid"
)

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func TestResolveNightWolfKill(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleWerewolf, RoleVillager, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionKill, Target: ids[2]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 2)

	if len(out.Deaths) != 1 || out.Deaths[0] != ids[2] {
		t.Fatalf("deaths = %v, want [%v]", out.Deaths, ids[2])
	}
	if st.LastVictim != ids[2] {
		t.Errorf("LastVictim = %v, want %v", st.LastVictim, ids[2])
	}
}

// Scenario C: two wolves split their kill votes one-and-one. A tie among
// the top count means abstention, so nobody dies from that path.
func TestResolveNightSplitWolvesKillNobody(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleWerewolf, RoleVillager, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionKill, Target: ids[3]})

	out := ResolveNight(r, l, &NightState{}, 2)
	if len(out.Deaths) != 0 {
		t.Fatalf("deaths = %v, want none on a split vote", out.Deaths)
	}
}

func TestResolveNightProtectionNegatesKill(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleDoctor, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionProtect, Target: ids[2]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 2)

	if len(out.Deaths) != 0 {
		t.Fatalf("deaths = %v, want none under protection", out.Deaths)
	}
	if !out.Saved || out.SavedID != ids[2] {
		t.Errorf("Saved = (%v, %v), want (true, %v)", out.Saved, out.SavedID, ids[2])
	}
	if st.ProtectedID != uuid.Nil {
		t.Error("protected id survived the night; it is valid for exactly one night")
	}
}

// A poison death still occurs even when the wolf kill was protected.
func TestResolveNightProtectionDoesNotBlockPoison(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleDoctor, RoleWitch, RoleVillager, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[3]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionProtect, Target: ids[3]})
	l.RecordNight(ids[2], NightDecision{Kind: ActionPoison, Target: ids[4]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 2)

	if len(out.Deaths) != 1 || out.Deaths[0] != ids[4] {
		t.Fatalf("deaths = %v, want only poison target %v", out.Deaths, ids[4])
	}
	if !st.PoisonUsed {
		t.Error("poison one-shot not consumed")
	}
}

// Scenario B: heal and poison in the same night. The death set is the
// poison target alone when the heal negates the proposed victim.
func TestResolveNightHealAndPoisonSameNight(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleWitch, RoleVillager, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionHeal, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionPoison, Target: ids[3]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 2)

	if len(out.Deaths) != 1 || out.Deaths[0] != ids[3] {
		t.Fatalf("deaths = %v, want only poison target %v", out.Deaths, ids[3])
	}
	if !st.HealUsed || !st.PoisonUsed {
		t.Errorf("one-shots = (heal %v, poison %v), want both consumed", st.HealUsed, st.PoisonUsed)
	}
}

// A heal aimed at someone other than the pending victim has no effect
// and does not consume the potion.
func TestResolveNightHealMissesKeepsPotion(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleWitch, RoleVillager, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionHeal, Target: ids[3]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 2)

	if len(out.Deaths) != 1 || out.Deaths[0] != ids[2] {
		t.Fatalf("deaths = %v, want wolf victim %v", out.Deaths, ids[2])
	}
	if st.HealUsed {
		t.Error("heal consumed without negating a kill")
	}
}

func TestResolveNightOneShotsNotReusable(t *testing.T) {
	r, ids := rosterWithRoles(RoleWerewolf, RoleWitch, RoleVillager, RoleVillager)
	st := &NightState{HealUsed: true, PoisonUsed: true}

	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionKill, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionHeal, Target: ids[2]})
	l.RecordNight(ids[1], NightDecision{Kind: ActionPoison, Target: ids[3]})

	out := ResolveNight(r, l, st, 3)
	if len(out.Deaths) != 1 || out.Deaths[0] != ids[2] {
		t.Fatalf("deaths = %v, want only wolf victim with spent potions", out.Deaths)
	}
}

func TestResolveNightSeerReveal(t *testing.T) {
	r, ids := rosterWithRoles(RoleSeer, RoleWerewolf, RoleVillager)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionInspect, Target: ids[1]})

	out := ResolveNight(r, l, &NightState{}, 2)
	if len(out.Reveals) != 1 {
		t.Fatalf("reveals = %d, want 1", len(out.Reveals))
	}
	rev := out.Reveals[0]
	if rev.To != ids[0] || rev.About != ids[1] || rev.Role != RoleWerewolf {
		t.Errorf("reveal = %+v, want seer→wolf", rev)
	}
	if len(out.Deaths) != 0 {
		t.Errorf("inspection produced deaths: %v", out.Deaths)
	}
}

func TestResolveNightPairFormation(t *testing.T) {
	r, ids := rosterWithRoles(RoleCupid, RoleVillager, RoleVillager, RoleWerewolf)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionPair, Target: ids[1]})
	l.RecordNight(ids[0], NightDecision{Kind: ActionPair, Target: ids[2]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 1)

	if !out.PairFormed || !st.Paired {
		t.Fatal("pair not formed from two recorded targets on round 1")
	}
	if st.Pair != [2]uuid.UUID{ids[1], ids[2]} {
		t.Errorf("pair = %v, want [%v %v]", st.Pair, ids[1], ids[2])
	}

	// The pair is immutable once formed.
	again := ResolveNight(r, NewActionLedger(), st, 1)
	if again.PairFormed {
		t.Error("second resolution re-formed the pair")
	}
}

// Pairing resolves independently of the kill outcome: the pair forms
// even when the wolves kill one of its members the same night, and the
// cascade then takes the partner.
func TestResolveNightPairFormsThenCascades(t *testing.T) {
	r, ids := rosterWithRoles(RoleCupid, RoleVillager, RoleVillager, RoleWerewolf)
	l := NewActionLedger()
	l.RecordNight(ids[0], NightDecision{Kind: ActionPair, Target: ids[1]})
	l.RecordNight(ids[0], NightDecision{Kind: ActionPair, Target: ids[2]})
	l.RecordNight(ids[3], NightDecision{Kind: ActionKill, Target: ids[1]})

	st := &NightState{}
	out := ResolveNight(r, l, st, 1)

	if !containsID(out.Deaths, ids[1]) || !containsID(out.Deaths, ids[2]) {
		t.Fatalf("deaths = %v, want both pair members", out.Deaths)
	}
	if len(out.Deaths) != 2 {
		t.Errorf("deaths = %v, want exactly the two pair members", out.Deaths)
	}
}

// A deadline-forced partial ledger resolves with missing decisions as
// abstentions.
func TestResolveNightPartialLedger(t *testing.T) {
	r, _ := rosterWithRoles(RoleWerewolf, RoleSeer, RoleDoctor, RoleVillager)
	out := ResolveNight(r, NewActionLedger(), &NightState{}, 2)
	if len(out.Deaths) != 0 || len(out.Reveals) != 0 {
		t.Errorf("empty ledger outcome = %+v, want no effect", out)
	}
}
