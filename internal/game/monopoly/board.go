package monopoly

import "fmt"

const (
	BoardSize     = 40
	JailIndex     = 10
	GoToJailIndex = 30
	TotalHouses   = 32
	TotalHotels   = 12

	// BoardVersion changes whenever the space table or the card decks change.
	// Snapshots written against another version are rejected on load.
	BoardVersion = 1
)

// SpaceType is the closed set of board space kinds.
type SpaceType int

const (
	SpaceGo SpaceType = iota
	SpaceProperty
	SpaceStation
	SpaceUtility
	SpaceTax
	SpaceChance
	SpaceCommunityChest
	SpaceJail
	SpaceFreeParking
	SpaceGoToJail
)

var spaceTypeNames = [...]string{
	SpaceGo:             "go",
	SpaceProperty:       "property",
	SpaceStation:        "station",
	SpaceUtility:        "utility",
	SpaceTax:            "tax",
	SpaceChance:         "chance",
	SpaceCommunityChest: "community-chest",
	SpaceJail:           "jail",
	SpaceFreeParking:    "free-parking",
	SpaceGoToJail:       "go-to-jail",
}

func (t SpaceType) String() string {
	if t < 0 || int(t) >= len(spaceTypeNames) {
		return fmt.Sprintf("SpaceType(%d)", int(t))
	}
	return spaceTypeNames[t]
}

func (t SpaceType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(spaceTypeNames) {
		return nil, fmt.Errorf("unknown space type %d", int(t))
	}
	return []byte(spaceTypeNames[t]), nil
}

func (t *SpaceType) UnmarshalText(b []byte) error {
	for i, name := range spaceTypeNames {
		if name == string(b) {
			*t = SpaceType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown space type %q", string(b))
}

// Colour groups.
const (
	GroupBrown     = "brown"
	GroupLightBlue = "light-blue"
	GroupPink      = "pink"
	GroupOrange    = "orange"
	GroupRed       = "red"
	GroupYellow    = "yellow"
	GroupGreen     = "green"
	GroupDarkBlue  = "dark-blue"
)

// Space is a board square: the fixed template plus the ownership overlay.
type Space struct {
	Index     int       `json:"index"`
	Name      string    `json:"name"`
	Type      SpaceType `json:"type"`
	Price     int       `json:"price,omitempty"`
	Rent      []int     `json:"rent,omitempty"`
	Group     string    `json:"group,omitempty"`
	BuildCost int       `json:"buildCost,omitempty"`
	TaxAmount int       `json:"taxAmount,omitempty"`

	Owner     string `json:"owner,omitempty"`
	Mortgaged bool   `json:"mortgaged"`
	Houses    int    `json:"houses"`
	Hotels    int    `json:"hotels"`
}

// IsPurchasable reports whether the space can be owned.
func (s *Space) IsPurchasable() bool {
	return s.Type == SpaceProperty || s.Type == SpaceStation || s.Type == SpaceUtility
}

// Owned reports whether a player holds the space.
func (s *Space) Owned() bool { return s.Owner != "" }

// HasBuildings reports whether any house or hotel stands on the space.
func (s *Space) HasBuildings() bool { return s.Houses > 0 || s.Hotels > 0 }

// buildingLevel counts a hotel as the fifth building for the even-building rule.
func (s *Space) buildingLevel() int {
	if s.Hotels > 0 {
		return 5
	}
	return s.Houses
}

// MortgageValue is half the price, rounded down.
func (s *Space) MortgageValue() int { return s.Price / 2 }

// UnmortgageCost is the principal plus ten percent interest: floor(price * 0.55).
func (s *Space) UnmortgageCost() int { return s.Price * 55 / 100 }

// clear resets the ownership overlay.
func (s *Space) clear() {
	s.Owner = ""
	s.Mortgaged = false
	s.Houses = 0
	s.Hotels = 0
}

type spaceTemplate struct {
	name      string
	typ       SpaceType
	price     int
	rent      []int
	group     string
	buildCost int
	tax       int
}

var stationRent = []int{250, 500, 1000, 2000}

func street(name, group string, price, build int, rent ...int) spaceTemplate {
	return spaceTemplate{name: name, typ: SpaceProperty, price: price, rent: rent, group: group, buildCost: build}
}

func station(name string) spaceTemplate {
	return spaceTemplate{name: name, typ: SpaceStation, price: 2000, rent: stationRent}
}

func utility(name string) spaceTemplate {
	return spaceTemplate{name: name, typ: SpaceUtility, price: 1500}
}

func tax(name string, amount int) spaceTemplate {
	return spaceTemplate{name: name, typ: SpaceTax, tax: amount}
}

func corner(name string, typ SpaceType) spaceTemplate {
	return spaceTemplate{name: name, typ: typ}
}

var boardTable = [BoardSize]spaceTemplate{
	corner("শুরু (Go)", SpaceGo),
	street("পুরান ঢাকা", GroupBrown, 600, 500, 20, 100, 300, 900, 1600, 2500),
	corner("কমিউনিটি চেস্ট", SpaceCommunityChest),
	street("লালবাগ কেল্লা", GroupBrown, 600, 500, 40, 200, 600, 1800, 3200, 4500),
	tax("আয়কর (Income Tax)", 2000),
	station("কমলাপুর স্টেশন"),
	street("মতিঝিল", GroupLightBlue, 1000, 500, 60, 300, 900, 2700, 4000, 5500),
	corner("চান্স", SpaceChance),
	street("দিলকুশা", GroupLightBlue, 1000, 500, 60, 300, 900, 2700, 4000, 5500),
	street("নয়া পল্টন", GroupLightBlue, 1200, 500, 80, 400, 1000, 3000, 4500, 6000),
	corner("জেল (Jail)", SpaceJail),
	street("ফার্মগেট", GroupPink, 1400, 1000, 100, 500, 1500, 4500, 6250, 7500),
	utility("বিদ্যুৎ সরবরাহ (Electric)"),
	street("এলিফ্যান্ট রোড", GroupPink, 1400, 1000, 100, 500, 1500, 4500, 6250, 7500),
	street("নিউ মার্কেট", GroupPink, 1600, 1000, 120, 600, 1800, 5000, 7000, 9000),
	station("বিমানবন্দর স্টেশন"),
	street("ধানমন্ডি", GroupOrange, 1800, 1000, 140, 700, 2000, 5500, 7500, 9500),
	corner("কমিউনিটি চেস্ট", SpaceCommunityChest),
	street("মোহাম্মদপুর", GroupOrange, 1800, 1000, 140, 700, 2000, 5500, 7500, 9500),
	street("শ্যামলী", GroupOrange, 2000, 1000, 160, 800, 2200, 6000, 8000, 10000),
	corner("ফ্রি পার্কিং", SpaceFreeParking),
	street("গুলশান", GroupRed, 2200, 1500, 180, 900, 2500, 7000, 8750, 10500),
	corner("চান্স", SpaceChance),
	street("বনানী", GroupRed, 2200, 1500, 180, 900, 2500, 7000, 8750, 10500),
	street("বারিধারা", GroupRed, 2400, 1500, 200, 1000, 3000, 7500, 9250, 11000),
	station("চট্টগ্রাম স্টেশন"),
	street("উত্তরা", GroupYellow, 2600, 1500, 220, 1100, 3300, 8000, 9750, 11500),
	street("মিরপুর", GroupYellow, 2600, 1500, 220, 1100, 3300, 8000, 9750, 11500),
	utility("পানি সরবরাহ (Water Works)"),
	street("বসুন্ধরা", GroupYellow, 2800, 1500, 240, 1200, 3600, 8500, 10250, 12000),
	corner("জেলে যাও (Go to Jail)", SpaceGoToJail),
	street("কক্সবাজার", GroupGreen, 3000, 2000, 260, 1300, 3900, 9000, 11000, 13000),
	street("সেন্ট মার্টিন", GroupGreen, 3000, 2000, 260, 1300, 3900, 9000, 11000, 13000),
	corner("কমিউনিটি চেস্ট", SpaceCommunityChest),
	street("বান্দরবান", GroupGreen, 3200, 2000, 280, 1500, 4500, 10000, 12000, 14000),
	station("সিলেট স্টেশন"),
	corner("চান্স", SpaceChance),
	street("শ্রীমঙ্গল", GroupDarkBlue, 3500, 2000, 350, 1750, 5000, 11000, 13000, 15000),
	tax("বিলাস কর (Luxury Tax)", 1000),
	street("জাফলং", GroupDarkBlue, 4000, 2000, 500, 2000, 6000, 14000, 17000, 20000),
}

// groupIndex lists the spaces of every colour group.
var groupIndex = func() map[string][]int {
	m := make(map[string][]int)
	for i, t := range boardTable {
		if t.group != "" {
			m[t.group] = append(m[t.group], i)
		}
	}
	return m
}()

// NewBoard returns a fresh, unowned board.
func NewBoard() []Space {
	board := make([]Space, BoardSize)
	for i, t := range boardTable {
		var rent []int
		if t.rent != nil {
			rent = append([]int(nil), t.rent...)
		}
		board[i] = Space{
			Index:     i,
			Name:      t.name,
			Type:      t.typ,
			Price:     t.price,
			Rent:      rent,
			Group:     t.group,
			BuildCost: t.buildCost,
			TaxAmount: t.tax,
		}
	}
	return board
}

// GroupMembers returns the board indices that share a colour group.
func GroupMembers(group string) []int {
	return groupIndex[group]
}

// checkTemplate reports whether a restored space still matches the fixed table.
func checkTemplate(s Space) error {
	if s.Index < 0 || s.Index >= BoardSize {
		return fmt.Errorf("space index %d out of range", s.Index)
	}
	t := boardTable[s.Index]
	if s.Type != t.typ || s.Price != t.price || s.Group != t.group || s.BuildCost != t.buildCost || s.TaxAmount != t.tax {
		return fmt.Errorf("space %d does not match board version %d", s.Index, BoardVersion)
	}
	if len(s.Rent) != len(t.rent) {
		return fmt.Errorf("space %d rent schedule has %d entries, want %d", s.Index, len(s.Rent), len(t.rent))
	}
	for i := range t.rent {
		if s.Rent[i] != t.rent[i] {
			return fmt.Errorf("space %d rent schedule does not match board version %d", s.Index, BoardVersion)
		}
	}
	return nil
}
