package models

// Capabilities
const (
	CapBookmarks         = "BOOKMARKS"
	CapPrompts           = "PROMPTS"
	CapMemories          = "MEMORIES"
	CapAgents            = "AGENTS"
	CapMultiConvo        = "MULTI_CONVO"
	CapTemporaryChat     = "TEMPORARY_CHAT"
	CapRunCode           = "RUN_CODE"
	CapWebSearch         = "WEB_SEARCH"
	CapMarketplace       = "MARKETPLACE"
	CapFileSearch        = "FILE_SEARCH"
	CapFileCitations     = "FILE_CITATIONS"
	CapPeoplePicker      = "PEOPLE_PICKER"
	CapRoleManagement    = "ROLE_MANAGEMENT"
	CapBalanceManagement = "BALANCE_MANAGEMENT"
)

// Actions
const (
	ActionUse          = "USE"
	ActionCreate       = "CREATE"
	ActionRead         = "READ"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionSharedGlobal = "SHARED_GLOBAL"
	ActionOptOut       = "OPT_OUT"
	ActionViewUsers    = "VIEW_USERS"
	ActionViewGroups   = "VIEW_GROUPS"
	ActionViewRoles    = "VIEW_ROLES"
)

// Catalog lists the known capabilities and their actions. Evaluation does not depend on it.
var Catalog = map[string][]string{
	CapBookmarks:         {ActionUse},
	CapPrompts:           {ActionSharedGlobal, ActionUse, ActionCreate},
	CapMemories:          {ActionUse, ActionCreate, ActionUpdate, ActionRead, ActionOptOut},
	CapAgents:            {ActionSharedGlobal, ActionUse, ActionCreate},
	CapMultiConvo:        {ActionUse},
	CapTemporaryChat:     {ActionUse},
	CapRunCode:           {ActionUse},
	CapWebSearch:         {ActionUse},
	CapMarketplace:       {ActionUse},
	CapFileSearch:        {ActionUse},
	CapFileCitations:     {ActionUse},
	CapPeoplePicker:      {ActionViewUsers, ActionViewGroups, ActionViewRoles},
	CapRoleManagement:    {ActionCreate, ActionUpdate, ActionDelete},
	CapBalanceManagement: {ActionUpdate},
}

// adminOnly capabilities are granted to ADMIN and denied to every other default role.
var adminOnly = map[string]bool{
	CapRoleManagement:    true,
	CapBalanceManagement: true,
	CapPeoplePicker:      true,
}

// sharedActions stay admin-only even inside user capabilities.
var sharedActions = map[string]bool{
	ActionSharedGlobal: true,
}
