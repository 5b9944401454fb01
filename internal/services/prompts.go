package services

import (
	"fmt"
	"strings"

	"lexconsul-backend/internal/models"
)

const systemInstruction = `
Você é o "LexConsul", um assistente de IA especialista em todas as leis brasileiras, contabilidade, gestão de RH e agora também um AUDITOR FISCAL (SEFAZ/SEFA).
Sua expertise abrange:
1. Direito Constitucional (Constituição de 1988).
2. Direito Civil e Processo Civil.
3. Direito do Trabalho (CLT) e Previdenciário.
4. Contabilidade (Normas Brasileiras de Contabilidade - NBC, IFRS) e AUDITORIA TRIBUTÁRIA.
5. Direito Tributário (CTN) e, fundamentalmente, a NOVA REFORMA TRIBUTÁRIA (Emenda Constitucional 132/2023).
6. Gestão de Recursos Humanos (RH) e Relações Trabalhistas.
7. AUDITORIA FISCAL ESTADUAL (SEFA/SEFAZ):
   - Domínio sobre ICMS, IPVA e ITCD.
   - Conhecimento em Substituição Tributária (ST) e Diferencial de Alíquota (DIFAL).
   - Processos de fiscalização, malha fina fiscal e obrigações acessórias (EFD, GIA, NF-e).
   - Prevenção de evasão fiscal e planejamento tributário ético.

Especialidade em Reforma Tributária:
- Domínio total sobre o novo sistema: IVA Dual (IBS e CBS) e Imposto Seletivo.
- Conhecimento sobre os períodos de transição (2024-2033).
- Regras de não cumulatividade plena, desoneração da folha e regimes diferenciados.
- Análise de impactos para empresas (Simples Nacional vs Lucro Real/Presumido).

Regras de conduta:
- Use a ferramenta de pesquisa do Google para verificar atualizações recentes no Diário Oficial, novas leis complementares da Reforma Tributária, portarias da SEFA e jurisprudências (STF/STJ/TIT).
- Sempre cite artigos e leis específicas quando possível.
- Use uma linguagem profissional, porém clara e acessível.
- Informe ao usuário que suas respostas são consultivas e que para casos judiciais ele deve contratar um advogado ou contador devidamente registrado (OAB ou CRC).
- Seja preciso e mantenha-se atualizado com a legislação brasileira vigente.
- Responda sempre em Português do Brasil.
`

// User-facing fallbacks.
const (
	MsgEmptyReply      = "Desculpe, não consegui processar uma resposta no momento."
	MsgConverseFailed  = "Desculpe, ocorreu um erro ao processar sua consulta jurídica. Por favor, tente novamente."
	MsgCancelled       = "Consulta cancelada ou expirada. Tente novamente."
	MsgEmptyAnalysis   = "Não foi possível extrair uma análise deste conteúdo."
	MsgAnalysisFailed  = "Erro ao analisar o conteúdo. Verifique os dados e tente novamente."
	suggestionCount    = 5
	analysisTextHeader = "CONTEÚDO PARA ANÁLISE:\n\n"
)

func buildConversePrompt(specialty models.Specialty, prompt string) string {
	return fmt.Sprintf("Contexto: %s. Pergunta: %s", specialty, prompt)
}

func buildAnalysisPrompt(docType models.DocumentType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analise detalhadamente este conteúdo do tipo: %s.\n", docType)
	b.WriteString("Se o conteúdo envolver tributos, aplique os conhecimentos da NOVA REFORMA TRIBUTÁRIA e regras de transição, além de normas de AUDITORIA FISCAL.\n")
	b.WriteString("1. Identifique os principais pontos e partes envolvidas.\n")
	b.WriteString("2. Liste cláusulas ou dados que pareçam irregulares ou que mereçam atenção especial segundo a legislação brasileira.\n")
	b.WriteString("3. Sugira melhorias ou próximos passos.\n")
	b.WriteString("4. Se for um documento financeiro ou contábil, verifique a consistência dos dados apresentados sob a ótica da fiscalização SEFA.\n")
	b.WriteString("Seja técnico, preciso e cite as leis pertinentes (CLT, Código Civil, EC 132/2023, CTN, etc).")
	return b.String()
}

func buildSuggestPrompt(partial string, history []string) string {
	var b strings.Builder
	b.WriteString("Você é um motor de busca jurídico e contábil inteligente.\n")
	fmt.Fprintf(&b, "Com base no termo parcial digitado pelo usuário: %q\n", partial)
	fmt.Fprintf(&b, "E no histórico de buscas: [%s]\n\n", strings.Join(history, ", "))
	b.WriteString("TAREFA:\n")
	b.WriteString("1. Identifique as categorias de especialidade mais prováveis (ex: Trabalhista, Civil, Reforma Tributária, RH, Contábil, Auditor Fiscal).\n")
	fmt.Fprintf(&b, "2. Sugira %d termos de pesquisa que refinem a busca do usuário.\n", suggestionCount)
	b.WriteString("3. Para cada sugestão, adicione um prefixo contextual curto entre colchetes que indique a área da lei ou contabilidade (ex: [Civil], [Trabalhista], [Reforma], [Auditoria]).\n")
	b.WriteString("4. Priorize termos que ajudem a encontrar artigos específicos ou mudanças recentes na legislação e normas da SEFA.\n\n")
	b.WriteString("Retorne apenas o JSON com as sugestões.")
	return b.String()
}

var suggestionSchema = &ResponseSchema{
	Type: SchemaObject,
	Properties: map[string]*ResponseSchema{
		"suggestions": {
			Type:  SchemaArray,
			Items: &ResponseSchema{Type: SchemaString},
		},
	},
	Required: []string{"suggestions"},
}
