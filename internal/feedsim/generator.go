package feedsim

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Probabilities applied per person per tick.
const (
	statusChangeRate = 0.05
	signalLossRate   = 0.03
	signalBackRate   = 0.5
	stepDegrees      = 0.002
)

var (
	firstNames = []string{"Ana", "Ben", "Chen", "Dara", "Eli", "Fatima", "Goran", "Hana", "Ivan", "Jun", "Kofi", "Lena"}
	lastNames  = []string{"Diaz", "Okafor", "Novak", "Sato", "Moreau", "Haddad", "Kowalski", "Singh", "Berg", "Rossi"}
	statuses   = []string{"safe", "safe", "safe", "warning", "emergency"}
)

type person struct {
	id        string
	label     string
	status    string
	pos       Point
	lost      bool
	contacted time.Time
}

// Population is a deterministic random walk of people.
type Population struct {
	rng    *rand.Rand
	people []*person
	now    func() time.Time
}

// NewPopulation seeds n people around center.
func NewPopulation(n int, center Point, spread float64, seed uint64, now func() time.Time) *Population {
	if now == nil {
		now = time.Now
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	p := &Population{rng: rng, now: now}
	for i := 0; i < n; i++ {
		idBytes := make([]byte, 16)
		for j := range idBytes {
			idBytes[j] = byte(rng.IntN(256))
		}
		id, _ := uuid.FromBytes(idBytes)
		p.people = append(p.people, &person{
			id:     id.String(),
			label:  fmt.Sprintf("%s %s", firstNames[rng.IntN(len(firstNames))], lastNames[rng.IntN(len(lastNames))]),
			status: statuses[rng.IntN(len(statuses))],
			pos: Point{
				Lng: center.Lng + (rng.Float64()*2-1)*spread,
				Lat: center.Lat + (rng.Float64()*2-1)*spread,
			},
			contacted: now(),
		})
	}
	return p
}

// Step advances every person by one tick.
func (p *Population) Step() {
	now := p.now()
	for _, ps := range p.people {
		if ps.lost {
			if p.rng.Float64() < signalBackRate {
				ps.lost = false
			}
			continue
		}
		if p.rng.Float64() < signalLossRate {
			ps.lost = true
			continue
		}
		ps.pos.Lng = clamp(ps.pos.Lng+(p.rng.Float64()*2-1)*stepDegrees, -180, 180)
		ps.pos.Lat = clamp(ps.pos.Lat+(p.rng.Float64()*2-1)*stepDegrees, -85, 85)
		if p.rng.Float64() < statusChangeRate {
			ps.status = statuses[p.rng.IntN(len(statuses))]
		}
		ps.contacted = now
	}
}

// Snapshot returns the population in wire form. People without a signal
// carry no coordinate.
func (p *Population) Snapshot() []Person {
	now := p.now()
	out := make([]Person, 0, len(p.people))
	for _, ps := range p.people {
		item := Person{
			ID:          ps.id,
			Label:       ps.label,
			Status:      ps.status,
			LastContact: humanize.RelTime(ps.contacted, now, "ago", "from now"),
		}
		if !ps.lost {
			pos := ps.pos
			item.Coordinate = &pos
		}
		out = append(out, item)
	}
	return out
}

// Pick returns a random person id.
func (p *Population) Pick() string {
	if len(p.people) == 0 {
		return ""
	}
	return p.people[p.rng.IntN(len(p.people))].id
}

// Len returns the population size.
func (p *Population) Len() int { return len(p.people) }

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
