package routes

// App returns the dashboard route table.
func App() []Route {
	return append(appRoutes(), authRoutes()...)
}

func appRoutes() []Route {
	return []Route{
		{Path: "/", Redirect: Home},
		{
			Name: Home,
			Path: "/home",
			Meta: Meta{RequiresAuth: true, Title: "Home"},
			Children: []Route{
				{Name: Dashboard, Path: "/home/dashboard", Meta: Meta{Title: "Dashboard"}},
				{Name: Entities, Path: "/home/entities", Meta: Meta{Title: "Service providers"}},
				{Name: Agents, Path: "/home/agents", Meta: Meta{Title: "Agents"}},
				{Name: Services, Path: "/home/services", Meta: Meta{Title: "Services"}},
				{Name: Branches, Path: "/home/branches", Meta: Meta{Title: "Branches"}},
				{Name: Accounts, Path: "/home/accounts", Meta: Meta{Title: "Accounts"}},
				{Name: Configurations, Path: "/home/configurations", Meta: Meta{Title: "Settings"}},
				{Name: Ledger, Path: "/home/ledger", Meta: Meta{Title: "Ledger"}},
				{Name: ServicesDetails, Path: "/home/services-details", Meta: Meta{Title: "Service details"}},
				{Name: Finances, Path: "/home/finances", Meta: Meta{Title: "Finances"}},
				{Name: Gateway, Path: "/home/gateway", Meta: Meta{Title: "Gateway"}},
			},
		},
		{Name: ServiceDetails, Path: "/service/:id", Meta: Meta{RequiresAuth: true, Title: "Service"}},
		{Name: ProviderDetails, Path: "/provider/:id", Meta: Meta{RequiresAuth: true, Title: "Service provider"}},
	}
}

func authRoutes() []Route {
	return []Route{
		{Name: SignIn, Path: "/account/sign-in", Meta: Meta{Title: "Sign in"}},
		{Name: SignOut, Path: "/account/sign-out", Meta: Meta{Title: "Sign out"}},
	}
}
