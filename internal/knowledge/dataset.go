package knowledge

import (
	"fmt"

	_ "embed"
)

//go:embed criteria/depressao.txt
var depressionCriteria string

//go:embed criteria/ansiedade.txt
var anxietyCriteria string

// Document is one criteria file of the knowledge base.
type Document struct {
	Name string
	Text string
}

// Documents returns the fixed criteria summaries, in write order.
func Documents() []Document {
	return []Document{
		{Name: "depressao.txt", Text: depressionCriteria},
		{Name: "ansiedade.txt", Text: anxietyCriteria},
	}
}

// Record is one fine-tuning example before formatting.
type Record struct {
	Context  string
	Question string
	Answer   string
}

const recordFormat = `[CONTEXTO]
%s
---
[PERGUNTA]
%s
---
[INSTRUÇÃO]
Com base no contexto de critérios diagnósticos acima, formule uma resposta empática e uma pergunta de aprofundamento para o usuário. Não dê um diagnóstico, apenas explore os sintomas.
[RESPOSTA]
%s
`

// Format renders the record as one training block, without the end marker.
func (r Record) Format() string {
	return fmt.Sprintf(recordFormat, r.Context, r.Question, r.Answer)
}

const (
	depressionExcerpt = "Critérios Diagnósticos para Depressão Maior: ...pelo menos um dos sintomas é (1) humor deprimido ou (2) perda de interesse ou prazer (anedonia). ...6. Fadiga ou perda de energia."
	anxietyExcerpt    = "Critérios Diagnósticos para Transtorno de Ansiedade Generalizada (TAG): ...Ansiedade e preocupação excessivas... 1. Inquietação... 5. Tensão muscular."
	noContext         = "Nenhum contexto relevante encontrado."
)

// Records returns the four fine-tuning examples.
func Records() []Record {
	return []Record{
		{
			Context:  depressionExcerpt,
			Question: "Estou me sentindo para baixo e sem energia há semanas. Perdi o interesse em coisas que eu gostava.",
			Answer:   "Entendo. Além do desânimo e da perda de energia, você notou alguma mudança no seu sono ou apetite recentemente?",
		},
		{
			Context:  anxietyExcerpt,
			Question: "Eu me preocupo com tudo, o tempo todo. Meu coração dispara e sinto que não consigo relaxar.",
			Answer:   "Lamento que esteja se sentindo assim. Essa preocupação constante afeta sua capacidade de concentração ou causa tensão muscular?",
		},
		{
			Context:  depressionCriteria,
			Question: "Não consigo dormir direito e perdi peso sem querer. Sinto-me inútil.",
			Answer:   "Agradeço por compartilhar isso. A sensação de inutilidade é acompanhada por dificuldade de se concentrar nas tarefas do dia a dia?",
		},
		{
			Context:  noContext,
			Question: "bom dia",
			Answer:   "Olá! Sou um assistente focado em saúde mental. Como você está se sentindo hoje?",
		},
	}
}
