package interview

// Category is one technical interview topic.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var categories = []Category{
	{"dbms", "Database Management Systems (SQL, NoSQL, Database Design, Transactions, Indexing)"},
	{"oops", "Object-Oriented Programming (Classes, Inheritance, Polymorphism, Encapsulation, Design Patterns)"},
	{"system_design", "System Design (Scalability, Load Balancing, Microservices, Distributed Systems, Architecture)"},
	{"dsa", "Data Structures and Algorithms (Arrays, Trees, Graphs, Sorting, Dynamic Programming, Complexity Analysis)"},
	{"design", "Software Design (Design Patterns, Architecture, Code Quality, SOLID Principles)"},
}

var categoryIndex = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Name] = c
	}
	return m
}()

// Categories returns the technical category table in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryNames returns the valid category keys in display order.
func CategoryNames() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Name
	}
	return out
}

// RoleGeneral is the catch-all role.
const RoleGeneral = "general"

// Role is one entry of the role table.
type Role struct {
	Name         string `json:"name"`
	DefaultTitle string `json:"default_title"`
	Description  string `json:"description"`

	// guidance is appended to the role-based system prompt.
	guidance string

	// opening is a format string taking the role title.
	opening string

	// opensWithCompany marks openings that also take the company.
	opensWithCompany bool

	// nudges overrides the general nudge list when set.
	nudges []string
}

var roles = []Role{
	{
		Name:         "marketing",
		DefaultTitle: "Marketing Specialist",
		Description:  "Marketing roles focusing on campaigns, strategy, and customer acquisition",
		guidance: `Focus on marketing strategies, campaign development, market research, brand positioning, digital marketing channels, customer segmentation, ROI measurement, and analytics.
Ask about:
- Successful marketing campaigns they've managed
- How they measure campaign effectiveness
- Experience with different marketing channels (email, social, PPC, etc.)
- Market research and customer insights
- Budget management and optimization
- Cross-functional collaboration`,
		opening:          "Hello! I'm your interviewer today for the %s position at %s. Let's begin: Can you introduce yourself and share your experience in marketing, particularly any successful campaigns or strategies you've implemented?",
		opensWithCompany: true,
		nudges: []string{
			"I'm still waiting for your response about your marketing experience. Please take your time.",
			"Could you share your thoughts on the marketing question? Feel free to give specific examples.",
			"Take your time to think about a marketing campaign or strategy you'd like to discuss.",
		},
	},
	{
		Name:         "social_media",
		DefaultTitle: "Social Media Manager",
		Description:  "Social media management and content strategy roles",
		guidance: `Focus on social media strategy, content creation, community management, platform-specific knowledge, influencer partnerships, brand voice, and social analytics.
Ask about:
- Experience with different social platforms (Instagram, LinkedIn, TikTok, etc.)
- Content planning and creation process
- Engagement strategies and community building
- Social media analytics and KPIs
- Crisis management on social platforms
- Influencer collaboration experience`,
		opening: "Hello! I'm conducting your interview for the %s position. To start off: Can you introduce yourself and tell me about your experience managing social media accounts? What platforms have you worked with and what kind of engagement results have you achieved?",
		nudges: []string{
			"I'm waiting for your response about social media. Please share your experience when ready.",
			"Could you tell me about your social media work? Examples of campaigns would be great.",
			"Feel free to discuss any social media platforms or strategies you've worked with.",
		},
	},
	{
		Name:         "sales",
		DefaultTitle: "Sales Representative",
		Description:  "Sales and business development positions",
		guidance: `Focus on sales techniques, lead generation, client relationship building, closing strategies, CRM management, sales targets, negotiation, and customer needs analysis.
Ask about:
- Sales methodology and approach
- Lead generation and qualification
- Relationship building with prospects
- Handling objections and closing deals
- CRM usage and sales process
- Achieving and exceeding quotas`,
		opening: "Hello! I'm your interviewer for the %s position. Let's begin: Can you introduce yourself and share your sales experience? Tell me about your approach to building client relationships and achieving targets.",
		nudges: []string{
			"I'm still waiting to hear about your sales experience. Please take your time.",
			"Could you share your thoughts on the sales question? Specific examples would be helpful.",
			"Take your time to think about a sales situation or achievement you'd like to discuss.",
		},
	},
	{
		Name:         "design",
		DefaultTitle: "UX/UI Designer",
		Description:  "UX/UI and creative design roles",
		guidance: `Focus on design principles, creative process, design software proficiency, user experience, visual communication, brand consistency, and portfolio work.
Ask about:
- Design process from concept to completion
- Software expertise (Adobe Creative Suite, Figma, etc.)
- Working with brand guidelines
- Collaborating with non-design stakeholders
- User research and testing
- Portfolio pieces and design decisions`,
		opening: "Hello! I'm interviewing you for the %s position. Let's start: Can you introduce yourself and walk me through your design background? What's your creative process and what design tools do you specialize in?",
		nudges: []string{
			"I'm waiting for your response about your design background. Please share when ready.",
			"Could you tell me about your design experience? Portfolio examples would be great.",
			"Feel free to discuss your design process or a project you're proud of.",
		},
	},
	{
		Name:         "management",
		DefaultTitle: "Team Manager",
		Description:  "Leadership and team management positions",
		guidance: `Focus on leadership skills, team management, strategic planning, decision-making, performance management, conflict resolution, and organizational development.
Ask about:
- Leadership philosophy and style
- Team building and motivation strategies
- Performance management and feedback
- Handling difficult conversations
- Strategic planning and execution
- Change management experience`,
		opening: "Hello! I'm conducting your interview for the %s position. To begin: Can you introduce yourself and share your leadership experience? How do you approach team management and what's your leadership style?",
	},
	{
		Name:         "finance",
		DefaultTitle: "Financial Analyst",
		Description:  "Financial analysis and planning roles",
		guidance: `Focus on financial analysis, budgeting, forecasting, risk assessment, financial reporting, compliance, and business partnership.
Ask about:
- Financial modeling and analysis experience
- Budgeting and forecasting processes
- Risk management approaches
- Financial reporting and presentation
- Business partnering with other departments
- Regulatory compliance knowledge`,
		opening: "Hello! I'm your interviewer for the %s position. Let's start: Can you introduce yourself and tell me about your background in finance? What areas of financial analysis or planning have you focused on?",
	},
	{
		Name:         "hr",
		DefaultTitle: "HR Coordinator",
		Description:  "Human resources and talent management",
		guidance: `Focus on talent acquisition, employee relations, performance management, HR policies, workplace culture, compensation and benefits, training and development.
Ask about:
- Recruiting and hiring processes
- Employee engagement initiatives
- Performance review and development
- HR policy development and implementation
- Conflict resolution and mediation
- Training program design and delivery`,
		opening: "Hello! I'm interviewing you for the %s position. To begin: Can you introduce yourself and share your experience in human resources? What aspects of HR do you find most rewarding?",
	},
	{
		Name:         "operations",
		DefaultTitle: "Operations Manager",
		Description:  "Operations and process management",
		guidance: `Focus on process improvement, project management, supply chain, quality control, efficiency optimization, and cross-functional coordination.
Ask about:
- Process analysis and improvement
- Project management methodologies
- Quality assurance and control
- Vendor and supplier management
- Data analysis for operational decisions
- Cross-departmental collaboration`,
		opening: "Hello! I'm your interviewer for the %s position. Let's start: Can you introduce yourself and tell me about your experience in operations? How do you approach process improvement and efficiency?",
	},
	{
		Name:         "customer_service",
		DefaultTitle: "Customer Service Representative",
		Description:  "Customer support and service roles",
		guidance: `Focus on customer relationship management, problem resolution, communication skills, service quality, customer satisfaction, and support processes.
Ask about:
- Customer service philosophy
- Handling difficult customers
- Problem-solving approaches
- Customer satisfaction measurement
- Support tool usage
- Escalation management`,
		opening: "Hello! I'm conducting your interview for the %s position. To begin: Can you introduce yourself and share your customer service experience? How do you handle challenging customer situations?",
	},
	{
		Name:         "content",
		DefaultTitle: "Content Creator",
		Description:  "Content creation and marketing roles",
		guidance: `Focus on content strategy, writing and editing, SEO, content management systems, editorial calendars, and audience engagement.
Ask about:
- Content creation process
- SEO and content optimization
- Editorial calendar management
- Content performance measurement
- Writing for different audiences
- Content management tools`,
		opening: "Hello! I'm your interviewer for the %s position. Let's start: Can you introduce yourself and tell me about your content creation experience? What types of content do you enjoy creating most?",
	},
	{
		Name:         RoleGeneral,
		DefaultTitle: "Professional",
		Description:  "General professional interviews",
		guidance:     "Focus on relevant skills for the position, work experience, problem-solving abilities, communication skills, cultural fit, and motivation for the role.",
		opening:      "Hello! I'm your interviewer today for the %s position. Let's start: Can you briefly introduce yourself and tell me about your professional background and what interests you about this role?",
		nudges: []string{
			"I'm still waiting for your response. Please take your time to think.",
			"Could you please share your thoughts on the question?",
			"Feel free to think out loud or ask for clarification if needed.",
		},
	},
}

var roleIndex = func() map[string]Role {
	m := make(map[string]Role, len(roles))
	for _, r := range roles {
		m[r.Name] = r
	}
	return m
}()

// Roles returns the role table in display order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// LookupRole returns the table entry for name.
func LookupRole(name string) (Role, bool) {
	r, ok := roleIndex[name]
	return r, ok
}

// technicalNudges are played to candidates in technical interviews.
var technicalNudges = []string{
	"I'm still waiting for your response. Please take your time.",
	"Could you please share your thoughts on the question?",
	"Feel free to think out loud or ask for clarification if needed.",
}
