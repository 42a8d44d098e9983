package datagen

// area is a BLS area code and name.
type area struct {
	code string
	name string
}

// Fixed national and census region areas. Metropolitan areas are
// generated.
var (
	nationalArea = area{"0000", "U.S. city average"}
	regionAreas  = []area{
		{"0100", "Northeast"},
		{"0200", "Midwest"},
		{"0300", "South"},
		{"0400", "West"},
	}
)

// foodItem is an average price series item with a typical price.
type foodItem struct {
	code  string
	name  string
	price float64
}

var foodItems = []foodItem{
	{"701111", "Flour, white, all purpose, per lb. (453.6 gm)", 0.52},
	{"702111", "Bread, white, pan, per lb. (453.6 gm)", 1.95},
	{"703112", "Ground beef, 100% beef, per lb. (453.6 gm)", 5.30},
	{"706111", "Chicken, fresh, whole, per lb. (453.6 gm)", 2.05},
	{"708111", "Eggs, grade A, large, per doz.", 2.90},
	{"709112", "Milk, fresh, whole, fortified, per gal. (3.8 lit)", 4.05},
	{"710212", "Cheddar cheese, natural, per lb. (453.6 gm)", 5.60},
	{"711211", "Bananas, per lb. (453.6 gm)", 0.63},
	{"712112", "Potatoes, white, per lb. (453.6 gm)", 1.02},
	{"717311", "Coffee, 100%, ground roast, all sizes, per lb. (453.6 gm)", 6.30},
}

// cpiItem is a CPI basket category with a typical index level.
type cpiItem struct {
	code  string
	name  string
	index float64
}

var cpiItems = []cpiItem{
	{"SA0", "All items", 300},
	{"SAF1", "Food", 310},
	{"SAF11", "Food at home", 305},
	{"SEFV", "Food away from home", 340},
	{"SAH", "Housing", 320},
	{"SAT", "Transportation", 270},
	{"SAM", "Medical care", 550},
	{"SAE", "Education and communication", 145},
}

// cpiBases are the index base periods found in the CPI metadata.
var cpiBases = []string{"1982-84=100", "DECEMBER 1977=100", "DECEMBER 1997=100"}

// incomeRegions are the rows of the regional income table.
var incomeRegions = []string{"United States", "Northeast", "Midwest", "South", "West"}
