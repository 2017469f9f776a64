package core

import "triage-assistant/pkg"

var (
	frequencyOptions = []string{"Nenhuma", "Vários dias", "Mais da metade dos dias", "Quase todos os dias"}
	habitOptions     = []string{"Raramente", "Às vezes", "Frequentemente", "Quase sempre"}
)

// questionnaire is the fixed screening questionnaire.  Every question has at
// least one option; the first option is the default used when no selection
// is submitted.
var questionnaire = []pkg.Question{
	{
		ID:      "Q1",
		Prompt:  "Q1: Nas últimas duas semanas, com que frequência você sentiu pouco interesse ou prazer em fazer as coisas?",
		Options: frequencyOptions,
		Topic:   "Depressão (Anedonia)",
	},
	{
		ID:      "Q2",
		Prompt:  "Q2: Nas últimas duas semanas, com que frequência você se sentiu nervoso(a), ansioso(a) ou 'com os nervos à flor da pele'?",
		Options: frequencyOptions,
		Topic:   "Ansiedade (Preocupação)",
	},
	{
		ID:      "Q3",
		Prompt:  "Q3: Com que frequência você tem dificuldade para manter o foco em tarefas ou conversas?",
		Options: habitOptions,
		Topic:   "TDAH (Desatenção)",
	},
	{
		ID:      "Q4",
		Prompt:  "Q4: Você já teve períodos distintos (dias ou semanas) em que se sentiu 'no topo do mundo', com muito mais energia ou autoconfiança do que o normal, a ponto de amigos ou familiares notarem?",
		Options: []string{"Não, nunca", "Acho que sim, mas foi breve", "Sim, claramente"},
		Topic:   "Bipolaridade (Mania/Hipomania)",
	},
	{
		ID:      "Q5",
		Prompt:  "Q5: Nas últimas duas semanas, com que frequência você se sentiu 'para baixo', deprimido(a) ou sem esperança?",
		Options: frequencyOptions,
		Topic:   "Depressão (Humor)",
	},
	{
		ID:      "Q6",
		Prompt:  "Q6: Nas últimas duas semanas, com que frequência você esteve tão inquieto(a) ou agitado(a) que era difícil ficar parado(a)?",
		Options: frequencyOptions,
		Topic:   "Ansiedade (Física) / TDAH (Hiperatividade)",
	},
	{
		ID:      "Q7",
		Prompt:  "Q7: Com que frequência você age por impulso (toma decisões rápidas sem pensar nas consequências)?",
		Options: habitOptions,
		Topic:   "TDAH (Impulsividade)",
	},
	{
		ID:      "Q8",
		Prompt:  "Q8: Você já teve períodos em que precisava dormir muito menos do que o habitual (ex: 2-3 horas por noite) mas, mesmo assim, se sentia cheio de energia e não cansado?",
		Options: []string{"Não, nunca", "Acho que sim, mas ainda me sentia cansado(a)", "Sim, e eu não sentia cansaço"},
		Topic:   "Bipolaridade (Sono/Mania)",
	},
	{
		ID:      "Q9",
		Prompt:  "Q9: Nas últimas duas semanas, com que frequência você se sentiu mal sobre si mesmo(a) — ou que era um fracasso ou que tinha decepcionado a si mesmo(a) ou sua família?",
		Options: frequencyOptions,
		Topic:   "Depressão (Culpa/Autoestima)",
	},
	{
		ID:      "Q10",
		Prompt:  "Q10: Quão difícil é para você organizar tarefas e atividades do dia-a-dia?",
		Options: []string{"Nada difícil", "Um pouco difícil", "Muito difícil", "Extremamente difícil"},
		Topic:   "TDAH (Organização/Função Executiva)",
	},
}

// Questions returns a copy of the questionnaire so callers cannot mutate the
// shared definition.
func Questions() []pkg.Question {
	out := make([]pkg.Question, len(questionnaire))
	for i, q := range questionnaire {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

// QuestionCount is the number of questions a session must answer before the
// analysis can be requested.
func QuestionCount() int { return len(questionnaire) }
