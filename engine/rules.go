package engine

// Composition configures how many of each role a session deals out.
// Any remainder after the configured roles is filled with villagers;
// if the configured multiset exceeds the participant count it is
// truncated in declaration order (wolves first).
type Composition struct {
	Wolves  uint8
	Seers   uint8
	Doctors uint8
	Witches uint8
	Cupids  uint8
	Hunters uint8
	Elders  uint8
}

// DefaultComposition derives a standard composition from the participant
// count: one wolf per four participants (rounded up) and one of each
// special role while the count allows.
func DefaultComposition(n int) Composition {
	c := Composition{Wolves: uint8((n + 3) / 4)}
	specials := []*uint8{&c.Seers, &c.Doctors, &c.Witches, &c.Cupids, &c.Hunters, &c.Elders}
	budget := n - int(c.Wolves)
	for _, s := range specials {
		if budget <= 1 { // keep at least one villager seat
			break
		}
		*s = 1
		budget--
	}
	return c
}

// total returns the configured role count, villagers excluded.
func (c Composition) total() int {
	return int(c.Wolves) + int(c.Seers) + int(c.Doctors) + int(c.Witches) +
		int(c.Cupids) + int(c.Hunters) + int(c.Elders)
}

// xorshift64: deterministic per seed.
type rng struct{ s uint64 }

func newRNG(seed uint64) rng {
	if seed == 0 {
		seed = 1 // xorshift can't start at 0
	}
	return rng{s: seed}
}

func (r *rng) next() uint64 {
	x := r.s
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	r.s = x
	return x
}

// intn returns a random number in [0, n).
func (r *rng) intn(n int) int {
	return int(r.next() % uint64(n))
}

// AssignRoles deals the composition's role multiset across the roster:
// the multiset is truncated or padded with villagers to match the
// participant count, Fisher-Yates shuffled with the seed, and assigned
// in roster insertion order. All participants come out alive.
func AssignRoles(r *Roster, comp Composition, seed uint64) {
	n := r.Len()
	roles := make([]Role, 0, n)
	add := func(role Role, count uint8) {
		for i := uint8(0); i < count && len(roles) < n; i++ {
			roles = append(roles, role)
		}
	}
	add(RoleWerewolf, comp.Wolves)
	add(RoleSeer, comp.Seers)
	add(RoleDoctor, comp.Doctors)
	add(RoleWitch, comp.Witches)
	add(RoleCupid, comp.Cupids)
	add(RoleHunter, comp.Hunters)
	add(RoleElder, comp.Elders)
	for len(roles) < n {
		roles = append(roles, RoleVillager)
	}

	gen := newRNG(seed)
	for i := len(roles) - 1; i > 0; i-- {
		j := gen.intn(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}

	for i, p := range r.All() {
		p.Role = roles[i]
		p.Alive = true
	}
}
