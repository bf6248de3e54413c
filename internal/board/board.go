// internal/board/board.go
package board

import "fmt"

const (
	// Size is the number of squares on the board.
	Size = 40
	// JailPosition is the square a jailed player sits on.
	JailPosition = 10
	// GoToJailPosition sends whoever lands on it to jail.
	GoToJailPosition = 30
	// DefaultLandingRank is used for squares missing from the landing rank table.
	DefaultLandingRank = 25
)

// Kind is the square type as reported by the property catalogue.
type Kind string

const (
	KindLand           Kind = "land"
	KindRailway        Kind = "railway"
	KindUtility        Kind = "utility"
	KindStart          Kind = "start"
	KindCommunityChest Kind = "community_chest"
	KindChance         Kind = "chance"
	KindIncomeTax      Kind = "income_tax"
	KindLuxuryTax      Kind = "luxury_tax"
	KindVisitingJail   Kind = "visiting_jail"
	KindFreeParking    Kind = "free_parking"
	KindGoToJail       Kind = "goto_jail"
)

// Purchasable reports whether squares of this kind can be bought from the bank.
func (k Kind) Purchasable() bool {
	return k == KindLand || k == KindRailway || k == KindUtility
}

// Square is the static definition of one board position. The id equals the position.
type Square struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Type            Kind   `json:"type"`
	Group           Group  `json:"group,omitempty"`
	Price           int    `json:"price"`
	RentSiteOnly    int    `json:"rent_site_only"`
	RentOneHouse    int    `json:"rent_one_house"`
	RentTwoHouses   int    `json:"rent_two_houses"`
	RentThreeHouses int    `json:"rent_three_houses"`
	RentFourHouses  int    `json:"rent_four_houses"`
	RentHotel       int    `json:"rent_hotel"`
	CostOfHouse     int    `json:"cost_of_house"`
}

// RentFor returns the table rent for a development level (0 site only, 1-4 houses, 5 hotel).
func (s Square) RentFor(development int) int {
	switch {
	case development >= 5:
		return s.RentHotel
	case development == 4:
		return s.RentFourHouses
	case development == 3:
		return s.RentThreeHouses
	case development == 2:
		return s.RentTwoHouses
	case development == 1:
		return s.RentOneHouse
	default:
		return s.RentSiteOnly
	}
}

// Group is a named colour group.
type Group string

const (
	Brown     Group = "brown"
	LightBlue Group = "lightblue"
	Pink      Group = "pink"
	Orange    Group = "orange"
	Red       Group = "red"
	Yellow    Group = "yellow"
	Green     Group = "green"
	DarkBlue  Group = "darkblue"
	Railroad  Group = "railroad"
	Utility   Group = "utility"
)

// IsStreet is false for the railroad and utility groups, which cannot be built on.
func (g Group) IsStreet() bool {
	return g != "" && g != Railroad && g != Utility
}

// Members returns the property ids belonging to the group, in board order.
func (g Group) Members() []int {
	ids := groupMembers[g]
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}

var groupMembers = map[Group][]int{
	Brown:     {1, 3},
	LightBlue: {6, 8, 9},
	Pink:      {11, 13, 14},
	Orange:    {16, 18, 19},
	Red:       {21, 23, 24},
	Yellow:    {26, 27, 29},
	Green:     {31, 32, 34},
	DarkBlue:  {37, 39},
	Railroad:  {5, 15, 25, 35},
	Utility:   {12, 28},
}

// BuildPriority orders street groups from most to least desirable to develop.
var BuildPriority = []Group{Orange, Red, Yellow, Pink, LightBlue, Green, Brown, DarkBlue}

// PriorityIndex returns the position of g in BuildPriority, or len(BuildPriority) when absent.
func PriorityIndex(g Group) int {
	for i, p := range BuildPriority {
		if p == g {
			return i
		}
	}
	return len(BuildPriority)
}

// Groups returns every group, streets in build priority order followed by railroad and utility.
func Groups() []Group {
	out := make([]Group, 0, len(BuildPriority)+2)
	out = append(out, BuildPriority...)
	return append(out, Railroad, Utility)
}

// landingRank orders squares by how often they are landed on (1 = most).
var landingRank = map[int]int{
	5: 1, 6: 2, 7: 3, 8: 4, 9: 5, 11: 6, 13: 7, 14: 8, 16: 9, 18: 10, 19: 11,
	21: 12, 23: 13, 24: 14, 26: 15, 27: 16, 29: 17, 31: 18, 32: 19, 34: 20,
	37: 21, 39: 22, 1: 30, 2: 25, 3: 29, 4: 35, 12: 32, 17: 28, 22: 26, 28: 33,
	33: 27, 36: 24, 38: 23,
}

// LandingRank returns the landing-frequency rank of a square.
func LandingRank(id int) int {
	if r, ok := landingRank[id]; ok {
		return r
	}
	return DefaultLandingRank
}

var squares = [Size]Square{
	{ID: 0, Name: "Go", Type: KindStart},
	street(1, "Mediterranean Avenue", Brown, 60, 50, 2, 10, 30, 90, 160, 250),
	{ID: 2, Name: "Community Chest", Type: KindCommunityChest},
	street(3, "Baltic Avenue", Brown, 60, 50, 4, 20, 60, 180, 320, 450),
	{ID: 4, Name: "Income Tax", Type: KindIncomeTax, Price: 200},
	railway(5, "Reading Railroad"),
	street(6, "Oriental Avenue", LightBlue, 100, 50, 6, 30, 90, 270, 400, 550),
	{ID: 7, Name: "Chance", Type: KindChance},
	street(8, "Vermont Avenue", LightBlue, 100, 50, 6, 30, 90, 270, 400, 550),
	street(9, "Connecticut Avenue", LightBlue, 120, 50, 8, 40, 100, 300, 450, 600),
	{ID: 10, Name: "Jail / Just Visiting", Type: KindVisitingJail},
	street(11, "St. Charles Place", Pink, 140, 100, 10, 50, 150, 450, 625, 750),
	utility(12, "Electric Company"),
	street(13, "States Avenue", Pink, 140, 100, 10, 50, 150, 450, 625, 750),
	street(14, "Virginia Avenue", Pink, 160, 100, 12, 60, 180, 500, 700, 900),
	railway(15, "Pennsylvania Railroad"),
	street(16, "St. James Place", Orange, 180, 100, 14, 70, 200, 550, 750, 950),
	{ID: 17, Name: "Community Chest", Type: KindCommunityChest},
	street(18, "Tennessee Avenue", Orange, 180, 100, 14, 70, 200, 550, 750, 950),
	street(19, "New York Avenue", Orange, 200, 100, 16, 80, 220, 600, 800, 1000),
	{ID: 20, Name: "Free Parking", Type: KindFreeParking},
	street(21, "Kentucky Avenue", Red, 220, 150, 18, 90, 250, 700, 875, 1050),
	{ID: 22, Name: "Chance", Type: KindChance},
	street(23, "Indiana Avenue", Red, 220, 150, 18, 90, 250, 700, 875, 1050),
	street(24, "Illinois Avenue", Red, 240, 150, 20, 100, 300, 750, 925, 1100),
	railway(25, "B. & O. Railroad"),
	street(26, "Atlantic Avenue", Yellow, 260, 150, 22, 110, 330, 800, 975, 1150),
	street(27, "Ventnor Avenue", Yellow, 260, 150, 22, 110, 330, 800, 975, 1150),
	utility(28, "Water Works"),
	street(29, "Marvin Gardens", Yellow, 280, 150, 24, 120, 360, 850, 1025, 1200),
	{ID: 30, Name: "Go To Jail", Type: KindGoToJail},
	street(31, "Pacific Avenue", Green, 300, 200, 26, 130, 390, 900, 1100, 1275),
	street(32, "North Carolina Avenue", Green, 300, 200, 26, 130, 390, 900, 1100, 1275),
	{ID: 33, Name: "Community Chest", Type: KindCommunityChest},
	street(34, "Pennsylvania Avenue", Green, 320, 200, 28, 150, 450, 1000, 1200, 1400),
	railway(35, "Short Line"),
	{ID: 36, Name: "Chance", Type: KindChance},
	street(37, "Park Place", DarkBlue, 350, 200, 35, 175, 500, 1100, 1300, 1500),
	{ID: 38, Name: "Luxury Tax", Type: KindLuxuryTax, Price: 100},
	street(39, "Boardwalk", DarkBlue, 400, 200, 50, 200, 600, 1400, 1700, 2000),
}

func street(id int, name string, g Group, price, house, site, r1, r2, r3, r4, hotel int) Square {
	return Square{
		ID: id, Name: name, Type: KindLand, Group: g, Price: price,
		RentSiteOnly: site, RentOneHouse: r1, RentTwoHouses: r2, RentThreeHouses: r3,
		RentFourHouses: r4, RentHotel: hotel, CostOfHouse: house,
	}
}

func railway(id int, name string) Square {
	return Square{ID: id, Name: name, Type: KindRailway, Group: Railroad, Price: 200, RentSiteOnly: 25}
}

func utility(id int, name string) Square {
	return Square{ID: id, Name: name, Type: KindUtility, Group: Utility, Price: 150, RentSiteOnly: 4}
}

// SquareAt returns the square at a board position. Positions outside [0,39] panic.
func SquareAt(position int) Square {
	if position < 0 || position >= Size {
		panic(fmt.Sprintf("board: position %d out of range", position))
	}
	return squares[position]
}

// Lookup is the non-panicking form of SquareAt, for ids coming off the wire.
func Lookup(id int) (Square, bool) {
	if id < 0 || id >= Size {
		return Square{}, false
	}
	return squares[id], true
}

// GroupOf returns the colour group of a property id, if it has one.
func GroupOf(id int) (Group, bool) {
	sq, ok := Lookup(id)
	if !ok || sq.Group == "" {
		return "", false
	}
	return sq.Group, true
}

// Squares returns a copy of the full board.
func Squares() []Square {
	out := make([]Square, Size)
	copy(out, squares[:])
	return out
}
