package rbac

// Fixed role names used by domain logic. The set of roles is closed:
// these three are provisioned at install time and referenced by name
// throughout handlers and templates.
const (
	RoleOwner       = "owner"
	RoleSalesperson = "salesperson"
	RoleCustomer    = "customer"
)

// Permission machine names. The catalog is compiled in; changing it
// means editing this table and re-running provisioning.
const (
	PermViewUsers   = "view_users"
	PermCreateUsers = "create_users"
	PermEditUsers   = "edit_users"
	PermDeleteUsers = "delete_users"

	PermViewClients   = "view_clients"
	PermCreateClients = "create_clients"
	PermEditClients   = "edit_clients"
	PermDeleteClients = "delete_clients"

	PermViewProducts   = "view_products"
	PermCreateProducts = "create_products"
	PermEditProducts   = "edit_products"
	PermDeleteProducts = "delete_products"

	PermViewSales   = "view_sales"
	PermCreateSales = "create_sales"
	PermEditSales   = "edit_sales"
	PermDeleteSales = "delete_sales"

	PermViewPurchases   = "view_purchases"
	PermCreatePurchases = "create_purchases"
	PermEditPurchases   = "edit_purchases"
	PermDeletePurchases = "delete_purchases"

	PermViewReports   = "view_reports"
	PermExportReports = "export_reports"

	PermManageSettings    = "manage_settings"
	PermManageRoles       = "manage_roles"
	PermManagePermissions = "manage_permissions"

	PermViewCategories   = "view_categories"
	PermCreateCategories = "create_categories"
	PermEditCategories   = "edit_categories"
	PermDeleteCategories = "delete_categories"

	PermViewUnits   = "view_units"
	PermCreateUnits = "create_units"
	PermEditUnits   = "edit_units"
	PermDeleteUnits = "delete_units"

	PermViewStockEntries   = "view_stock_entries"
	PermCreateStockEntries = "create_stock_entries"
	PermEditStockEntries   = "edit_stock_entries"
	PermDeleteStockEntries = "delete_stock_entries"

	PermViewStockExits   = "view_stock_exits"
	PermCreateStockExits = "create_stock_exits"
	PermEditStockExits   = "edit_stock_exits"
	PermDeleteStockExits = "delete_stock_exits"
)

// Definition describes one catalog entry.
type Definition struct {
	Name        string
	DisplayName string
	Description string
}

var catalog = []Definition{
	{PermViewUsers, "View users", "Allows listing user accounts"},
	{PermCreateUsers, "Create users", "Allows creating new user accounts"},
	{PermEditUsers, "Edit users", "Allows editing existing user accounts"},
	{PermDeleteUsers, "Delete users", "Allows deleting user accounts"},

	{PermViewClients, "View customers", "Allows listing customer records"},
	{PermCreateClients, "Create customers", "Allows creating customer records"},
	{PermEditClients, "Edit customers", "Allows editing customer records"},
	{PermDeleteClients, "Delete customers", "Allows deleting customer records"},

	{PermViewProducts, "View products", "Allows listing products"},
	{PermCreateProducts, "Create products", "Allows creating products"},
	{PermEditProducts, "Edit products", "Allows editing products"},
	{PermDeleteProducts, "Delete products", "Allows deleting products"},

	{PermViewSales, "View sales", "Allows viewing the sales list"},
	{PermCreateSales, "Create sales", "Allows recording sales"},
	{PermEditSales, "Edit sales", "Allows editing recorded sales"},
	{PermDeleteSales, "Delete sales", "Allows deleting recorded sales"},

	{PermViewPurchases, "View purchases", "Allows viewing the purchases list"},
	{PermCreatePurchases, "Create purchases", "Allows recording purchases"},
	{PermEditPurchases, "Edit purchases", "Allows editing recorded purchases"},
	{PermDeletePurchases, "Delete purchases", "Allows deleting recorded purchases"},

	{PermViewReports, "View reports", "Allows viewing system reports"},
	{PermExportReports, "Export reports", "Allows exporting reports"},

	{PermManageSettings, "Manage settings", "Allows managing system configuration"},
	{PermManageRoles, "Manage roles", "Allows managing user roles"},
	{PermManagePermissions, "Manage permissions", "Allows managing permissions"},

	{PermViewCategories, "View categories", "Allows listing product categories"},
	{PermCreateCategories, "Create categories", "Allows creating product categories"},
	{PermEditCategories, "Edit categories", "Allows editing product categories"},
	{PermDeleteCategories, "Delete categories", "Allows deleting product categories"},

	{PermViewUnits, "View units of measure", "Allows listing units of measure"},
	{PermCreateUnits, "Create units of measure", "Allows creating units of measure"},
	{PermEditUnits, "Edit units of measure", "Allows editing units of measure"},
	{PermDeleteUnits, "Delete units of measure", "Allows deleting units of measure"},

	{PermViewStockEntries, "View stock entries", "Allows viewing the stock entry history"},
	{PermCreateStockEntries, "Create stock entries", "Allows recording stock entries"},
	{PermEditStockEntries, "Edit stock entries", "Allows editing stock entries"},
	{PermDeleteStockEntries, "Delete stock entries", "Allows deleting stock entries"},

	{PermViewStockExits, "View stock exits", "Allows viewing the stock exit history"},
	{PermCreateStockExits, "Create stock exits", "Allows recording stock exits"},
	{PermEditStockExits, "Edit stock exits", "Allows editing stock exits"},
	{PermDeleteStockExits, "Delete stock exits", "Allows deleting stock exits"},
}

// AllPermissions returns the compiled-in catalog in declaration order.
// Callers must not mutate the returned slice.
func AllPermissions() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// DefaultRolePermissions maps each provisioned role to its default
// permission set. The owner holds every catalog permission; the
// salesperson is limited to day-to-day sales operations; customers
// hold no administrative permissions at all.
func DefaultRolePermissions() map[string][]string {
	all := make([]string, len(catalog))
	for i, def := range catalog {
		all[i] = def.Name
	}
	return map[string][]string{
		RoleOwner: all,
		RoleSalesperson: {
			PermViewClients,
			PermCreateClients,
			PermEditClients,
			PermViewProducts,
			PermViewCategories,
			PermViewSales,
			PermCreateSales,
			PermEditSales,
			PermViewReports,
		},
		RoleCustomer: {},
	}
}

type roleSeed struct {
	name        string
	displayName string
	description string
}

var roleSeeds = []roleSeed{
	{RoleOwner, "Owner", "Full access to the system"},
	{RoleSalesperson, "Salesperson", "Limited access for sales operations"},
	{RoleCustomer, "Customer", "Customer account with basic access"},
}
