package studytools

const flashcardsPrompt = `Tu es un expert pédagogique. Génère exactement %d flashcards %s basées sur ce contenu de cours.

Contenu du cours:
%s

Format STRICT à respecter:
Q: [question claire et précise]
R: [réponse concise]
---

Génère exactement %d flashcards avec ce format.`

const quizPrompt = `Tu es un expert pédagogique. Génère un quiz de %d questions %s.

Contenu du cours:
%s

Format STRICT à respecter pour chaque question:
Q: [question]
A) [option A]
B) [option B]
C) [option C]
D) [option D]
CORRECT: [lettre de la bonne réponse]
FEEDBACK: [explication courte]
---

Génère exactement %d questions avec ce format.`

const summaryPrompt = `Tu es un expert pédagogique. Crée un résumé structuré %s de ce cours.

Contenu du cours:
%s

**LONGUEUR REQUISE:** %s
%s
Structure attendue:
# [Titre du cours]

## Introduction
- Contexte et objectifs (2-4 phrases)

## Points Clés
- Liste de points avec explications

## Formules / Définitions (si présentes dans le cours)
- Liste uniquement si le contenu du cours en contient

## Applications / Exemples (si présents dans le cours)
- Applications concrètes

## À retenir
- 3-6 phrases maximum

⚠️ Règles:
- Ne pas inventer de notions.
- Ne pas utiliser de placeholders ("Concept A", "Formule 1").
- Rester fidèle au contenu fourni.
`

const summaryTarget = "**CIBLE:** ~%d mots (objectif basé sur num_pages).\n"

const explanationPrompt = `Tu es un professeur pédagogue. La réponse brute à la question est fournie ci-dessous.

Question: %s
Réponse brute: %s

Ta mission: Transformer cette réponse en explication pédagogique complète %s.

Structure attendue:
1. Reformulation simple de la réponse
2. Contexte et pourquoi c'est important
3. Explication étape par étape si applicable
4. Exemples concrets
5. Points clés à retenir

Utilise du Markdown. Sois clair, engageant, pédagogique.`

// lengthConfig sizes a summary request.
type lengthConfig struct {
	instruction string
	maxTokens   int
	contentCap  int
}

var lengthConfigs = map[string]lengthConfig{
	"short": {
		instruction: "COURT : 5-7 points clés, concis. ~300-450 mots.",
		maxTokens:   3000,
		contentCap:  8000,
	},
	"medium": {
		instruction: "MOYEN : 8-12 points clés, explications concises. ~600-900 mots.",
		maxTokens:   4500,
		contentCap:  16000,
	},
	"long": {
		instruction: "DÉTAILLÉ : 12-18 points clés, explications développées, exemples et applications. ~1000-1800 mots.",
		maxTokens:   6500,
		contentCap:  26000,
	},
}
