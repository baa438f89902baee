package navigation

import "fmt"

// PageContract pins the portal's page structure. Any change on the portal
// side is a breaking change that needs these locators updated.
type PageContract struct {
	Version string

	Category    Locator
	Expand      Locator
	AddCriteria Locator
	FromYear    Locator
	ToYear      Locator
	Extract     Locator
	Download    Locator
	CSVLink     Locator

	// CheckboxXPath is formatted with the 1-based row of a data item in the
	// master checkbox list.
	CheckboxXPath string
	// LinkAttribute holds the CSV location on CSVLink.
	LinkAttribute string
}

// DefaultPageContract returns the locators of the BOJ time-series search
// as of the foreign exchange (FM08) menu layout.
func DefaultPageContract() PageContract {
	return PageContract{
		Version: "fm08-2021",

		Category:    Locator{Name: "category_menu", By: ByClass, Value: "selectedMenu"},
		Expand:      Locator{Name: "expand_items", By: ByXPath, Value: "/html/body/div[2]/div/ul[2]/li[1]/div[1]/div[1]/div[2]/input"},
		AddCriteria: Locator{Name: "add_criteria", By: ByXPath, Value: "/html/body/div[2]/div/ul[2]/li[1]/div[1]/div[2]/div[4]/a"},
		FromYear:    Locator{Name: "from_year", By: ByID, Value: "fromYear"},
		ToYear:      Locator{Name: "to_year", By: ByID, Value: "toYear"},
		Extract:     Locator{Name: "extract", By: ByXPath, Value: `//*[@id="resultArea"]/div[4]/div[1]/a[1]`},
		Download:    Locator{Name: "download", By: ByXPath, Value: "/html/body/div[2]/div/div[2]/table/tbody/tr[2]/td[4]"},
		CSVLink:     Locator{Name: "csv_link", By: ByCSS, Value: "body > div.contents > div > div > center > div > table > tbody > tr > td > a"},

		CheckboxXPath: `//*[@id="menuSearchDataCodeList"]/tbody/tr[%d]/td/label`,
		LinkAttribute: "href",
	}
}

// Checkbox returns the locator of the data item at a 0-based master list
// position.
func (c PageContract) Checkbox(position int) Locator {
	return Locator{
		Name:  fmt.Sprintf("data_item_%d", position),
		By:    ByXPath,
		Value: fmt.Sprintf(c.CheckboxXPath, position+1),
	}
}
