package knowledge

// Greeting opens every chat surface.
const Greeting = "Hello! I'm the Sukkur IBA Assistant. I can help you with information about admissions, policies, programs, fees, and campus life. How can I assist you today?"

// QuickQuestion is a one-click starter question.
type QuickQuestion struct {
	Label    string
	Question string
}

// QuickQuestions returns the starter questions shown before a conversation begins.
func QuickQuestions() []QuickQuestion {
	return []QuickQuestion{
		{Label: "Admissions", Question: "What are the admission requirements for undergraduate programs?"},
		{Label: "Policies", Question: "What are the university policies regarding attendance and examinations?"},
		{Label: "Programs", Question: "What undergraduate and graduate programs does Sukkur IBA offer?"},
		{Label: "Fee Structure", Question: "What is the fee structure for different programs?"},
		{Label: "Academic Calendar", Question: "When do the semesters start and what is the academic calendar?"},
		{Label: "Campus Life", Question: "What facilities and activities are available on campus?"},
	}
}
