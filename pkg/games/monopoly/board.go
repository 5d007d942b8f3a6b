package monopoly

// squareKind classifies the purchasable squares.
type squareKind int

const (
	street squareKind = iota
	railroad
	utility
)

// deed is the purchase price and base rent of one ownable square. Railroad
// and utility rent is derived from the owner's holdings, not the table.
type deed struct {
	Price int64
	Rent  int64
	Kind  squareKind
}

var deeds = map[int]deed{
	1:  {Price: 60, Rent: 2, Kind: street},
	3:  {Price: 60, Rent: 4, Kind: street},
	5:  {Price: 200, Kind: railroad},
	6:  {Price: 100, Rent: 6, Kind: street},
	8:  {Price: 100, Rent: 6, Kind: street},
	9:  {Price: 120, Rent: 8, Kind: street},
	11: {Price: 140, Rent: 10, Kind: street},
	12: {Price: 150, Kind: utility},
	13: {Price: 140, Rent: 10, Kind: street},
	14: {Price: 160, Rent: 12, Kind: street},
	15: {Price: 200, Kind: railroad},
	16: {Price: 180, Rent: 14, Kind: street},
	18: {Price: 180, Rent: 14, Kind: street},
	19: {Price: 200, Rent: 16, Kind: street},
	21: {Price: 220, Rent: 18, Kind: street},
	23: {Price: 220, Rent: 18, Kind: street},
	24: {Price: 240, Rent: 20, Kind: street},
	25: {Price: 200, Kind: railroad},
	26: {Price: 260, Rent: 22, Kind: street},
	27: {Price: 260, Rent: 22, Kind: street},
	28: {Price: 150, Kind: utility},
	29: {Price: 280, Rent: 24, Kind: street},
	31: {Price: 300, Rent: 26, Kind: street},
	32: {Price: 300, Rent: 26, Kind: street},
	34: {Price: 320, Rent: 28, Kind: street},
	35: {Price: 200, Kind: railroad},
	37: {Price: 350, Rent: 35, Kind: street},
	39: {Price: 400, Rent: 50, Kind: street},
}

const (
	railroadBaseRent = 25
	utilityRentMult  = 4
	utilityBothMult  = 10
)
